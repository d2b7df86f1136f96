package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "xiaozhi"

// Asset classes used as label values.
const (
	AssetAudio = "audio"
	AssetLyric = "lyric"
)

// Recorder exposes the proxy's counters. A nil *Recorder records nothing.
type Recorder struct {
	resolutions  *prometheus.CounterVec
	prefetches   *prometheus.CounterVec
	prefetchSize *prometheus.CounterVec
	proxyReads   *prometheus.CounterVec
	evictions    *prometheus.CounterVec
	cacheEntries *prometheus.GaugeVec
}

// NewRecorder registers the proxy metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Song searches by outcome.",
		}, []string{"outcome"}),
		prefetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_total",
			Help:      "Asset prefetches by asset class and stage (attempted, succeeded, failed).",
		}, []string{"asset", "stage"}),
		prefetchSize: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_bytes_total",
			Help:      "Bytes of successfully prefetched assets.",
		}, []string{"asset", "format"}),
		proxyReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_reads_total",
			Help:      "Proxy reads by asset class and cache result.",
		}, []string{"asset", "result"}),
		evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted from the asset caches.",
		}, []string{"asset"}),
		cacheEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held by each asset cache.",
		}, []string{"asset"}),
	}
}

func (r *Recorder) Resolution(outcome string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) PrefetchAttempted(asset string) {
	if r == nil {
		return
	}
	r.prefetches.WithLabelValues(asset, "attempted").Inc()
}

func (r *Recorder) PrefetchSucceeded(asset, format string, size int) {
	if r == nil {
		return
	}
	r.prefetches.WithLabelValues(asset, "succeeded").Inc()
	r.prefetchSize.WithLabelValues(asset, format).Add(float64(size))
}

func (r *Recorder) PrefetchFailed(asset string) {
	if r == nil {
		return
	}
	r.prefetches.WithLabelValues(asset, "failed").Inc()
}

func (r *Recorder) ProxyRead(asset string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.proxyReads.WithLabelValues(asset, result).Inc()
}

func (r *Recorder) Evicted(asset string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.evictions.WithLabelValues(asset).Add(float64(n))
}

func (r *Recorder) CacheEntries(asset string, n int) {
	if r == nil {
		return
	}
	r.cacheEntries.WithLabelValues(asset).Set(float64(n))
}
