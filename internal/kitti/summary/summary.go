// Package summary condenses decoded frames into per-frame statistics and
// persists them in SQLite, one run per pass over a scan sequence.
package summary

import (
	"slices"

	"github.com/banshee-data/kittiscan/internal/kitti/decode"
)

// FrameSummary describes one decoded frame.
type FrameSummary struct {
	Index         int            `json:"frame_index"`
	Name          string         `json:"name"`
	Points        int            `json:"points"`
	TrailingBytes int            `json:"trailing_bytes"`
	MaxIntensity  float64        `json:"max_intensity"`
	Labels        map[uint16]int `json:"labels"` // canonical code -> point count
}

// Summarize computes the summary of frame f at catalog index.
func Summarize(index int, f decode.Frame) FrameSummary {
	s := FrameSummary{
		Index:         index,
		Name:          f.Name,
		Points:        f.Len(),
		TrailingBytes: f.TrailingBytes,
		MaxIntensity:  f.MaxIntensity,
		Labels:        make(map[uint16]int),
	}
	for _, l := range f.Labels {
		s.Labels[l]++
	}
	return s
}

// LabelCodes returns the distinct label codes across summaries, ascending.
func LabelCodes(summaries []FrameSummary) []uint16 {
	seen := make(map[uint16]bool)
	var codes []uint16
	for _, s := range summaries {
		for code := range s.Labels {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	slices.Sort(codes)
	return codes
}
