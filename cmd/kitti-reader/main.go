// Command kitti-reader streams a KITTI-style scan sequence through the
// decoded-frame window, logging a summary of every frame.
//
// Usage:
//
//	go run ./cmd/kitti-reader -dir /data/sequences/00/velodyne [flags]
//
// Flags override values from -config. With -seek the reader jumps to that
// frame first and streams from there. Frame summaries can be stored in
// SQLite (-db), plotted per frame (-plot-dir) and charted across the run
// (-chart). -metrics-listen serves Prometheus metrics while the run lasts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/kittiscan/internal/config"
	"github.com/banshee-data/kittiscan/internal/fsutil"
	"github.com/banshee-data/kittiscan/internal/kitti"
	"github.com/banshee-data/kittiscan/internal/kitti/decode"
	"github.com/banshee-data/kittiscan/internal/kitti/render"
	"github.com/banshee-data/kittiscan/internal/kitti/summary"
	"github.com/banshee-data/kittiscan/internal/monitoring"
	"github.com/banshee-data/kittiscan/internal/security"
	"github.com/banshee-data/kittiscan/internal/version"
)

type options struct {
	seek          int
	dbPath        string
	plotDir       string
	chartPath     string
	metricsListen string
}

func main() {
	configPath := flag.String("config", "", "Path to reader config JSON (defaults apply when empty)")
	dir := flag.String("dir", "", "Scan directory, or any scan file inside it")
	buffer := flag.Int("buffer", 0, "Decoded frame window size")
	backend := flag.String("backend", "", "Inference backend: grpc or uniform")
	addr := flag.String("addr", "", "Inference engine address")
	model := flag.String("model", "", "Model path passed to the inference engine")
	labels := flag.String("labels", "", "semantic-kitti label YAML")
	seek := flag.Int("seek", -1, "Frame index to seek to before streaming")
	dbPath := flag.String("db", "", "SQLite file to record frame summaries in")
	plotDir := flag.String("plot-dir", "", "Directory for per-frame bird's-eye PNGs")
	chart := flag.String("chart", "", "HTML file for the label histogram")
	metricsListen := flag.String("metrics-listen", "", "Address to serve /metrics on")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("kitti-reader"))
		return
	}

	cfg := config.DefaultReaderConfig()
	if *configPath != "" {
		loaded, err := config.LoadReaderConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.ScanDir = dir
		case "buffer":
			cfg.BufferSize = buffer
		case "backend":
			cfg.Backend = backend
		case "addr":
			cfg.InferenceAddr = addr
		case "model":
			cfg.ModelPath = model
		case "labels":
			cfg.LabelConfig = labels
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		seek:          *seek,
		dbPath:        *dbPath,
		plotDir:       *plotDir,
		chartPath:     *chart,
		metricsListen: *metricsListen,
	}
	if err := run(ctx, cfg, fsutil.OSFileSystem{}, opts); err != nil {
		log.Fatalf("kitti-reader: %v", err)
	}
}

func run(ctx context.Context, cfg *config.ReaderConfig, fsys fsutil.FileSystem, opts options) error {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewCacheMetrics(reg)
	if opts.metricsListen != "" {
		srv := &http.Server{Addr: opts.metricsListen, Handler: metricsMux(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				monitoring.Logf("[metrics] server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		monitoring.Logf("[metrics] serving on %s/metrics", opts.metricsListen)
	}

	r, err := kitti.Open(cfg, fsys, metrics)
	if err != nil {
		return err
	}
	defer r.Close()

	var store *summary.Store
	var runID string
	if opts.dbPath != "" {
		store, err = summary.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err = store.StartRun(r.Catalog().Dir(), r.Count())
		if err != nil {
			return err
		}
		monitoring.Logf("[summary] run %s", runID)
	}

	if opts.plotDir != "" {
		if err := fsys.MkdirAll(opts.plotDir, 0o755); err != nil {
			return fmt.Errorf("failed to create plot dir: %w", err)
		}
	}

	if opts.seek >= 0 {
		if err := r.Seek(opts.seek); err != nil {
			return err
		}
	}

	colors := r.Inferencer().ColorMap()
	var summaries []summary.FrameSummary
	failed := 0
	for ctx.Err() == nil {
		idx := r.Cursor()
		f, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			failed++
			monitoring.Warnf("[kitti-reader] skipping: %v", err)
			continue
		}

		s := summary.Summarize(idx, f)
		summaries = append(summaries, s)
		monitoring.Logf("[kitti-reader] %d %s points=%d max_intensity=%.3f labels=%d",
			idx, f.Name, s.Points, s.MaxIntensity, len(s.Labels))

		if store != nil {
			if err := store.RecordFrame(runID, s); err != nil {
				return err
			}
		}
		if opts.plotDir != "" && f.Len() > 0 {
			if err := plotFrame(f, colors, opts.plotDir); err != nil {
				monitoring.Warnf("[kitti-reader] plot %s: %v", f.Name, err)
			}
		}
	}

	if opts.chartPath != "" {
		out, err := os.Create(opts.chartPath)
		if err != nil {
			return fmt.Errorf("failed to create chart: %w", err)
		}
		if err := render.LabelHistogram(summaries, r.Inferencer().LabelMap(), out); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}

	monitoring.Logf("[kitti-reader] done: %d frames read, %d skipped", len(summaries), failed)
	return ctx.Err()
}

func plotFrame(f decode.Frame, colors map[int]color.RGBA, dir string) error {
	path, err := security.OutputPath(dir, f.Name, ".png")
	if err != nil {
		return err
	}
	return render.BirdsEye(f, colors, path)
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
