// Package render draws decoded frames and frame summaries for offline review.
package render

import (
	"fmt"
	"image/color"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/kittiscan/internal/kitti/decode"
)

// unknownColor is used for labels missing from the colour map.
var unknownColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// BirdsEye saves a top-down scatter of f's points coloured by label. The
// image format follows the extension of path (.png, .svg, .pdf).
func BirdsEye(f decode.Frame, colors map[int]color.RGBA, path string) error {
	if f.Len() == 0 {
		return fmt.Errorf("frame %s has no points", f.Name)
	}

	byLabel := make(map[uint16]plotter.XYs)
	for i, pt := range f.Points {
		l := f.Labels[i]
		byLabel[l] = append(byLabel[l], plotter.XY{X: float64(pt.X), Y: float64(pt.Y)})
	}
	labels := make([]uint16, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %d points", f.Name, f.Len())
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	for _, l := range labels {
		s, err := plotter.NewScatter(byLabel[l])
		if err != nil {
			return fmt.Errorf("label %d: %w", l, err)
		}
		c, ok := colors[int(l)]
		if !ok {
			c = unknownColor
		}
		s.GlyphStyle.Color = c
		s.GlyphStyle.Radius = vg.Points(0.8)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%d", l), s)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
