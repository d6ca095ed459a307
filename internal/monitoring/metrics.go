package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics records frame window activity. A nil *CacheMetrics is valid
// and records nothing, so callers that do not export metrics can pass nil.
type CacheMetrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Decodes       prometheus.Counter
	DecodeErrors  prometheus.Counter
	Evictions     prometheus.Counter
	Resets        prometheus.Counter
	DecodeSeconds prometheus.Histogram
	WindowFrames  prometheus.Gauge
}

// NewCacheMetrics registers the frame cache collectors with reg.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	f := promauto.With(reg)
	return &CacheMetrics{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Name: "kittiscan_cache_hits_total",
			Help: "Frame requests served from the decoded window.",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Name: "kittiscan_cache_misses_total",
			Help: "Frame requests that fell outside the decoded window.",
		}),
		Decodes: f.NewCounter(prometheus.CounterOpts{
			Name: "kittiscan_frames_decoded_total",
			Help: "Frame files decoded, including failed decodes.",
		}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "kittiscan_frame_decode_errors_total",
			Help: "Frame decodes that returned an error.",
		}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "kittiscan_cache_evictions_total",
			Help: "Frames evicted from either end of the window.",
		}),
		Resets: f.NewCounter(prometheus.CounterOpts{
			Name: "kittiscan_cache_resets_total",
			Help: "Seeks too far from the window to bridge incrementally.",
		}),
		DecodeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kittiscan_frame_decode_seconds",
			Help:    "Wall time to read, decode and infer one frame.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		WindowFrames: f.NewGauge(prometheus.GaugeOpts{
			Name: "kittiscan_cache_window_frames",
			Help: "Frames currently held in the decoded window.",
		}),
	}
}

func (m *CacheMetrics) ObserveHit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *CacheMetrics) ObserveMiss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *CacheMetrics) ObserveEviction() {
	if m != nil {
		m.Evictions.Inc()
	}
}

func (m *CacheMetrics) ObserveReset() {
	if m != nil {
		m.Resets.Inc()
	}
}

// ObserveDecode records one decode attempt and its duration.
func (m *CacheMetrics) ObserveDecode(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Decodes.Inc()
	m.DecodeSeconds.Observe(d.Seconds())
	if err != nil {
		m.DecodeErrors.Inc()
	}
}

func (m *CacheMetrics) SetWindow(frames int) {
	if m != nil {
		m.WindowFrames.Set(float64(frames))
	}
}
