package remotecache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_cache_hits_total",
			Help: "Reads served from a fresh cached entry",
		},
		[]string{"resource"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_cache_misses_total",
			Help: "Reads that required a remote fetch",
		},
		[]string{"resource"},
	)

	staleFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_cache_stale_fallbacks_total",
			Help: "Reads served from a stale entry after fetch exhaustion",
		},
		[]string{"resource"},
	)

	defaultsServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_cache_defaults_total",
			Help: "Reads served the documented default value",
		},
		[]string{"resource"},
	)

	fetchRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_fetch_retries_total",
			Help: "Remote fetch retry attempts beyond the first",
		},
		[]string{"resource"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, staleFallbacks, defaultsServed, fetchRetries)
}
