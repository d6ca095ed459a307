package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/kittiscan/internal/fsutil"
	"github.com/banshee-data/kittiscan/internal/kitti/inference"
	"github.com/banshee-data/kittiscan/internal/monitoring"
)

var (
	// ErrMalformedRecord is returned in strict mode when the file size is not
	// a multiple of RecordSize.
	ErrMalformedRecord = errors.New("frame size is not a whole number of records")

	// ErrInference wraps failures of the segmentation engine, including a
	// class distribution whose row count does not match the point count.
	ErrInference = errors.New("inference failed")
)

// Decoder reads and decodes scan files. It holds no mutable state of its own;
// concurrent use is as safe as the Inferencer it wraps.
type Decoder struct {
	fs     fsutil.FileSystem
	net    inference.Inferencer
	strict bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithStrictRecords makes non-conforming file sizes an error instead of a
// truncation warning.
func WithStrictRecords(strict bool) Option {
	return func(d *Decoder) { d.strict = strict }
}

// NewDecoder returns a Decoder reading through fsys and calling net once per frame.
func NewDecoder(fsys fsutil.FileSystem, net inference.Inferencer, opts ...Option) *Decoder {
	d := &Decoder{fs: fsys, net: net}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode reads path and returns the decoded frame. Read errors are returned
// wrapped so errors.Is(err, fs.ErrNotExist) still works.
func (d *Decoder) Decode(path string) (Frame, error) {
	raw, err := d.fs.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}

	name := filepath.Base(path)
	n := len(raw) / RecordSize
	trailing := len(raw) % RecordSize
	if trailing != 0 {
		if d.strict {
			return Frame{}, fmt.Errorf("%s: %w (%d bytes, %d trailing)", name, ErrMalformedRecord, len(raw), trailing)
		}
		monitoring.Warnf("[decode] %s: %d trailing bytes ignored (%d bytes, %d points)", name, trailing, len(raw), n)
	}

	values := make([]float32, n*5)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	f := Frame{
		Name:          name,
		Points:        make([]Point, n),
		Intensities:   make([]float64, n),
		Labels:        make([]uint16, n),
		Confidence:    make([]float32, n),
		TrailingBytes: trailing,
	}
	for i := 0; i < n; i++ {
		r := values[5*i : 5*i+5]
		f.Points[i] = Point{X: r[0], Y: r[1], Z: r[2]}
		f.Intensities[i] = float64(r[3])
		f.Labels[i] = RemapLabel(r[4])
		f.Confidence[i] = 1
	}
	f.MaxIntensity = normalize(f.Intensities)

	classes, err := d.net.Infer(values, n)
	if err != nil {
		return Frame{}, fmt.Errorf("%s: %w: %w", name, ErrInference, err)
	}
	if rows := rowCount(classes); rows != n {
		return Frame{}, fmt.Errorf("%s: %w: %d class rows for %d points", name, ErrInference, rows, n)
	}

	return f, nil
}

// normalize rescales v by its maximum and returns that maximum. The scale
// depends on the whole frame, so the maximum is found first. A maximum at or
// below zero leaves v untouched.
func normalize(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	peak := floats.Max(v)
	if peak <= 0 {
		return peak
	}
	floats.Scale(1/peak, v)
	return peak
}

func rowCount(m *mat.Dense) int {
	if m == nil || m.IsEmpty() {
		return 0
	}
	r, _ := m.Dims()
	return r
}
