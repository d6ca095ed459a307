// Package inference is the boundary to the semantic segmentation engine that
// turns a raw scan into per-point class distributions.
//
// The frame decoder depends only on the Inferencer interface. Two backends
// are provided: a gRPC client for a remote engine and a deterministic
// uniform backend for offline runs and tests.
package inference

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/kittiscan/internal/config"
	"github.com/banshee-data/kittiscan/internal/monitoring"
)

// FloatsPerPoint is the number of float32 values in one raw point record:
// x, y, z, intensity, label.
const FloatsPerPoint = 5

// ErrShortBuffer is returned when the flat buffer holds fewer than
// FloatsPerPoint*n values.
var ErrShortBuffer = errors.New("inference: buffer shorter than point count")

// Inferencer runs semantic segmentation over one scan.
//
// Infer receives the flat record buffer exactly as read from disk and the
// number of points, and returns one row per point with one column per class.
// Implementations are synchronous.
type Inferencer interface {
	Infer(values []float32, n int) (*mat.Dense, error)
	// LabelMap returns canonical label code -> class name.
	LabelMap() map[int]string
	// ColorMap returns canonical label code -> display colour.
	ColorMap() map[int]color.RGBA
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Addr      string
	ModelPath string
	Timeout   time.Duration
	Classes   int
	Metadata  Metadata
}

// New constructs the configured backend. The gRPC backend connects lazily,
// so New does not fail when the engine is not yet running.
func New(cfg Config) (Inferencer, error) {
	if cfg.Metadata.Names == nil {
		cfg.Metadata = DefaultMetadata()
	}
	switch cfg.Backend {
	case config.BackendGRPC, "":
		if cfg.ModelPath == "" {
			monitoring.Warnf("[inference] no model path configured; engine default will be used")
		}
		c, err := DialGRPC(cfg.Addr, cfg.ModelPath, cfg.Timeout, cfg.Metadata)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendUniform:
		return NewUniform(cfg.Classes, cfg.Metadata), nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", cfg.Backend)
	}
}

func checkBuffer(values []float32, n int) error {
	if n < 0 || len(values) < FloatsPerPoint*n {
		return fmt.Errorf("%w: %d values for %d points", ErrShortBuffer, len(values), n)
	}
	return nil
}

func copyNames(m map[int]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyColors(m map[int]color.RGBA) map[int]color.RGBA {
	out := make(map[int]color.RGBA, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
