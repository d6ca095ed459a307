package decode

import (
	"errors"
	"io/fs"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/kittiscan/internal/fsutil"
	"github.com/banshee-data/kittiscan/internal/kitti/inference"
	"github.com/banshee-data/kittiscan/internal/monitoring"
	"github.com/banshee-data/kittiscan/internal/testutil"
)

func muteLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	original := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.Logf = original })
	return &lines
}

// countingNet counts Infer calls and can be told to fail or to return a
// distribution with the wrong number of rows.
type countingNet struct {
	*inference.Uniform
	calls    int
	fail     error
	rowDelta int
	lastN    int
}

func newCountingNet() *countingNet {
	return &countingNet{Uniform: inference.NewUniform(20, inference.Metadata{})}
}

func (c *countingNet) Infer(values []float32, n int) (*mat.Dense, error) {
	c.calls++
	c.lastN = n
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Uniform.Infer(values, n+c.rowDelta)
}

func TestDecode_Basic(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/seq/000000.bin", testutil.EncodeRecords(
		[5]float32{1, 2, 3, 0.5, 1},
		[5]float32{-1, -2, -3, 2.0, 5},
		[5]float32{4, 5, 6, 1.0, 0},
	), 0644)

	net := newCountingNet()
	d := NewDecoder(mfs, net)

	got, err := d.Decode("/seq/000000.bin")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := Frame{
		Name:         "000000.bin",
		Points:       []Point{{1, 2, 3}, {-1, -2, -3}, {4, 5, 6}},
		Intensities:  []float64{0.25, 1, 0.5},
		Labels:       []uint16{10, 20, 0},
		Confidence:   []float32{1, 1, 1},
		MaxIntensity: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
	if net.calls != 1 || net.lastN != 3 {
		t.Errorf("expected one Infer call with 3 points, got calls=%d n=%d", net.calls, net.lastN)
	}
}

func TestDecode_RecordCount(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantPoints int
		wantTrail  int
	}{
		{"exact 100 bytes", 100, 5, 0},
		{"103 bytes truncates", 103, 5, 3},
		{"19 bytes", 19, 0, 19},
		{"empty", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := muteLogs(t)
			mfs := fsutil.NewMemoryFileSystem()
			mfs.WriteFile("/seq/f.bin", make([]byte, tt.size), 0644)

			f, err := NewDecoder(mfs, newCountingNet()).Decode("/seq/f.bin")
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if f.Len() != tt.wantPoints {
				t.Errorf("Len() = %d, want %d", f.Len(), tt.wantPoints)
			}
			if f.TrailingBytes != tt.wantTrail {
				t.Errorf("TrailingBytes = %d, want %d", f.TrailingBytes, tt.wantTrail)
			}
			if len(f.Intensities) != tt.wantPoints || len(f.Labels) != tt.wantPoints || len(f.Confidence) != tt.wantPoints {
				t.Error("per-point slices have unequal lengths")
			}

			warned := false
			for _, l := range *lines {
				if strings.HasPrefix(l, "WARN [decode]") {
					warned = true
				}
			}
			if warned != (tt.wantTrail != 0) {
				t.Errorf("warning logged = %v, want %v", warned, tt.wantTrail != 0)
			}
		})
	}
}

func TestDecode_StrictRecords(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/seq/odd.bin", make([]byte, 103), 0644)
	mfs.WriteFile("/seq/even.bin", make([]byte, 100), 0644)

	net := newCountingNet()
	d := NewDecoder(mfs, net, WithStrictRecords(true))

	_, err := d.Decode("/seq/odd.bin")
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if net.calls != 0 {
		t.Error("inference should not run for a rejected frame")
	}

	f, err := d.Decode("/seq/even.bin")
	if err != nil {
		t.Fatalf("Decode(even) error = %v", err)
	}
	if f.Len() != 5 {
		t.Errorf("Len() = %d, want 5", f.Len())
	}
}

func TestDecode_ZeroMaxIntensityUntouched(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/seq/dark.bin", testutil.EncodeRecords(
		[5]float32{0, 0, 0, 0, 1},
		[5]float32{1, 1, 1, 0, 1},
	), 0644)
	mfs.WriteFile("/seq/neg.bin", testutil.EncodeRecords(
		[5]float32{0, 0, 0, -1, 1},
		[5]float32{1, 1, 1, -3, 1},
	), 0644)

	d := NewDecoder(mfs, newCountingNet())

	dark, err := d.Decode("/seq/dark.bin")
	if err != nil {
		t.Fatalf("Decode(dark) error = %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0}, dark.Intensities); diff != "" {
		t.Errorf("dark intensities (-want +got):\n%s", diff)
	}
	for _, v := range dark.Intensities {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("intensity %v is not finite", v)
		}
	}

	neg, err := d.Decode("/seq/neg.bin")
	if err != nil {
		t.Fatalf("Decode(neg) error = %v", err)
	}
	if diff := cmp.Diff([]float64{-1, -3}, neg.Intensities); diff != "" {
		t.Errorf("negative intensities (-want +got):\n%s", diff)
	}
}

func TestDecode_MissingFile(t *testing.T) {
	muteLogs(t)
	net := newCountingNet()
	d := NewDecoder(fsutil.NewMemoryFileSystem(), net)

	_, err := d.Decode("/seq/missing.bin")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if net.calls != 0 {
		t.Error("inference should not run when the file cannot be read")
	}
}

func TestDecode_InferenceFailure(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/seq/a.bin", testutil.EncodeRecords([5]float32{1, 1, 1, 1, 1}), 0644)

	engineErr := errors.New("engine offline")
	net := newCountingNet()
	net.fail = engineErr

	_, err := NewDecoder(mfs, net).Decode("/seq/a.bin")
	if !errors.Is(err, ErrInference) {
		t.Errorf("expected ErrInference, got %v", err)
	}
	if !errors.Is(err, engineErr) {
		t.Errorf("expected engine error to be wrapped, got %v", err)
	}
}

func TestDecode_InferenceRowMismatch(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/seq/a.bin", testutil.EncodeRecords([5]float32{1, 1, 1, 1, 1}, [5]float32{2, 2, 2, 2, 2}), 0644)

	net := newCountingNet()
	net.rowDelta = -1

	_, err := NewDecoder(mfs, net).Decode("/seq/a.bin")
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference for short distribution, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 class rows for 2 points") {
		t.Errorf("unexpected error text %q", err)
	}
}

func TestRemapLabel(t *testing.T) {
	tests := []struct {
		raw  float32
		want uint16
	}{
		{5, 20},
		{0, 0},
		{25, 0},
		{1, 10},
		{19, 81},
		{-1, 0},
		{2.5, 0},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := RemapLabel(tt.raw); got != tt.want {
			t.Errorf("RemapLabel(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestCanonicalLabels_MatchDefaultMetadata(t *testing.T) {
	meta := inference.DefaultMetadata()
	for raw, code := range CanonicalLabels() {
		if _, ok := meta.Names[int(code)]; !ok {
			t.Errorf("raw %d -> %d has no label name", raw, code)
		}
	}
}

func TestFrameClone(t *testing.T) {
	f := Frame{
		Name:        "a.bin",
		Points:      []Point{{1, 2, 3}},
		Intensities: []float64{1},
		Labels:      []uint16{10},
		Confidence:  []float32{1},
	}

	c := f.Clone()
	c.Points[0].X = 9
	c.Intensities[0] = 9
	c.Labels[0] = 9
	c.Confidence[0] = 9

	if f.Points[0].X != 1 || f.Intensities[0] != 1 || f.Labels[0] != 10 || f.Confidence[0] != 1 {
		t.Error("Clone shares backing arrays with the original")
	}
	if diff := cmp.Diff(f, f.Clone()); diff != "" {
		t.Errorf("Clone mismatch (-want +got):\n%s", diff)
	}
}
