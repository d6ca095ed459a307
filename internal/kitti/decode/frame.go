// Package decode turns raw KITTI-style scan files into typed per-point arrays.
//
// A scan file has no header: it is N records of five little-endian float32
// values, x y z intensity label, so N = size / 20. Intensities are normalized
// per frame and raw label codes are remapped to canonical semantic-kitti codes.
package decode

import "slices"

// RecordSize is the byte length of one point record.
const RecordSize = 5 * 4

// Point is a sensor-frame position in metres.
type Point struct {
	X, Y, Z float32
}

// Frame is one decoded scan. All per-point slices have the same length.
// A Frame held by the frame cache must not be mutated; use Clone to obtain
// an independent copy.
type Frame struct {
	Name        string
	Points      []Point
	Intensities []float64
	Labels      []uint16
	// Confidence is 1 for every point until the engine's class
	// distribution is mapped onto canonical labels.
	Confidence []float32

	// MaxIntensity is the pre-normalization maximum, 0 for an empty frame.
	MaxIntensity float64
	// TrailingBytes counts bytes past the last whole record that were ignored.
	TrailingBytes int
}

// Len returns the number of points.
func (f Frame) Len() int { return len(f.Points) }

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	out := f
	out.Points = slices.Clone(f.Points)
	out.Intensities = slices.Clone(f.Intensities)
	out.Labels = slices.Clone(f.Labels)
	out.Confidence = slices.Clone(f.Confidence)
	return out
}

// canonicalLabels maps raw codes 1..19 (the learning map) to semantic-kitti
// codes. Index 0 is unlabeled.
var canonicalLabels = [20]uint16{
	0,
	10, 11, 15, 18, 20, // car bicycle motorcycle truck other-vehicle
	30, 31, 32, // person bicyclist motorcyclist
	40, 44, 48, 49, // road parking sidewalk other-ground
	50, 51, // building fence
	70, 71, 72, // vegetation trunk terrain
	80, 81, // pole traffic-sign
}

// RemapLabel maps a raw label value to its canonical code. Values outside
// 1..19, and values that are not whole numbers, map to 0.
func RemapLabel(raw float32) uint16 {
	if raw < 1 || raw > 19 || raw != float32(int(raw)) {
		return 0
	}
	return canonicalLabels[int(raw)]
}

// CanonicalLabels returns a copy of the raw -> canonical table, indexed by raw code.
func CanonicalLabels() [20]uint16 {
	return canonicalLabels
}
