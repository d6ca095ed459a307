package inference

import (
	"image/color"

	"gonum.org/v1/gonum/mat"
)

// Uniform is a deterministic backend that assigns every point an equal
// probability for each class. It needs no model and is used for offline
// catalog runs and as a test double.
type Uniform struct {
	classes int
	meta    Metadata
}

// NewUniform returns a Uniform backend producing rows of width classes.
// classes below 1 is treated as 1.
func NewUniform(classes int, meta Metadata) *Uniform {
	if classes < 1 {
		classes = 1
	}
	if meta.Names == nil {
		meta = DefaultMetadata()
	}
	return &Uniform{classes: classes, meta: meta}
}

// Classes returns the row width.
func (u *Uniform) Classes() int { return u.classes }

// Infer returns an n x classes matrix filled with 1/classes.
func (u *Uniform) Infer(values []float32, n int) (*mat.Dense, error) {
	if err := checkBuffer(values, n); err != nil {
		return nil, err
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}
	data := make([]float64, n*u.classes)
	p := 1 / float64(u.classes)
	for i := range data {
		data[i] = p
	}
	return mat.NewDense(n, u.classes, data), nil
}

func (u *Uniform) LabelMap() map[int]string     { return copyNames(u.meta.Names) }
func (u *Uniform) ColorMap() map[int]color.RGBA { return copyColors(u.meta.Colors) }
