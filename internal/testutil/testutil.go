// Package testutil provides shared test helpers and scan fixtures.
package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/banshee-data/kittiscan/internal/fsutil"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// EncodeRecords packs [x y z intensity label] records in the on-disk scan
// format: little-endian float32, no header.
func EncodeRecords(records ...[5]float32) []byte {
	buf := make([]byte, 0, len(records)*20)
	for _, r := range records {
		for _, v := range r {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf
}

// FrameName returns the zero-padded file name of frame i, e.g. 000007.bin.
func FrameName(i int) string {
	return fmt.Sprintf("%06d.bin", i)
}

// WriteSequence writes frames scan files to dir. Frame i holds i+1 points
// whose X coordinate is i, so a decoded frame identifies its own index.
func WriteSequence(t testing.TB, fsys fsutil.FileSystem, dir string, frames int) {
	t.Helper()
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for i := 0; i < frames; i++ {
		records := make([][5]float32, i+1)
		for p := range records {
			records[p] = [5]float32{float32(i), float32(p), 0, float32(p + 1), float32(p%19 + 1)}
		}
		path := filepath.Join(dir, FrameName(i))
		if err := fsys.WriteFile(path, EncodeRecords(records...), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}
