// Package kitti assembles a frame reader from configuration: the catalog of
// scan files, the inference backend, the decoder and the decoded-frame window.
package kitti

import (
	"fmt"
	"io"

	"github.com/banshee-data/kittiscan/internal/config"
	"github.com/banshee-data/kittiscan/internal/fsutil"
	"github.com/banshee-data/kittiscan/internal/kitti/catalog"
	"github.com/banshee-data/kittiscan/internal/kitti/decode"
	"github.com/banshee-data/kittiscan/internal/kitti/framecache"
	"github.com/banshee-data/kittiscan/internal/kitti/inference"
	"github.com/banshee-data/kittiscan/internal/monitoring"
)

// Reader streams and seeks over one scan sequence. The embedded Cache
// provides Read, Seek, Reset, Count and IsSeekable.
type Reader struct {
	*framecache.Cache
	catalog *catalog.Catalog
	net     inference.Inferencer
}

// Open validates cfg and builds a Reader over cfg's scan directory. An empty
// or unreadable directory gives a Reader with zero frames, not an error.
// metrics may be nil.
func Open(cfg *config.ReaderConfig, fsys fsutil.FileSystem, metrics *monitoring.CacheMetrics) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reader config: %w", err)
	}
	if cfg.GetScanDir() == "" {
		return nil, fmt.Errorf("invalid reader config: scan_dir is required")
	}

	meta := inference.DefaultMetadata()
	if path := cfg.GetLabelConfig(); path != "" {
		m, err := inference.LoadMetadata(fsys, path)
		if err != nil {
			return nil, err
		}
		meta = m
	}

	net, err := inference.New(inference.Config{
		Backend:   cfg.GetBackend(),
		Addr:      cfg.GetInferenceAddr(),
		ModelPath: cfg.GetModelPath(),
		Timeout:   cfg.GetInferenceTimeout(),
		Classes:   cfg.GetNumClasses(),
		Metadata:  meta,
	})
	if err != nil {
		return nil, err
	}

	cat := catalog.FromPath(fsys, cfg.GetScanDir(), cfg.GetExtension())
	dec := decode.NewDecoder(fsys, net, decode.WithStrictRecords(cfg.GetStrictRecords()))

	monitoring.Logf("[kitti] opened %s: %d frames, window %d, backend %s",
		cat.Dir(), cat.Count(), cfg.GetBufferSize(), cfg.GetBackend())

	return &Reader{
		Cache:   framecache.New(catalogLoader{cat: cat, dec: dec}, cfg.GetBufferSize(), metrics),
		catalog: cat,
		net:     net,
	}, nil
}

// Catalog returns the frame catalog.
func (r *Reader) Catalog() *catalog.Catalog { return r.catalog }

// Inferencer returns the inference backend, for its label and colour maps.
func (r *Reader) Inferencer() inference.Inferencer { return r.net }

// Close releases the inference backend's resources.
func (r *Reader) Close() error {
	if c, ok := r.net.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// catalogLoader decodes frames by catalog index.
type catalogLoader struct {
	cat *catalog.Catalog
	dec *decode.Decoder
}

func (l catalogLoader) Count() int { return l.cat.Count() }

func (l catalogLoader) Load(i int) (decode.Frame, error) {
	return l.dec.Decode(l.cat.Path(i))
}
