// Package metrics exposes Prometheus instrumentation for the client: remote
// requests, token refreshes, local cache effectiveness and optimistic
// rollbacks.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_api_requests_total",
		Help: "Total number of REST requests issued, by method and status.",
	}, []string{"method", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventdesk_api_request_duration_seconds",
		Help:    "Histogram of REST request latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	tokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_token_refresh_total",
		Help: "Access token refresh attempts, by outcome.",
	}, []string{"outcome"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_cache_lookups_total",
		Help: "Local cache lookups, by cache name and result (hit, miss, expired).",
	}, []string{"cache", "result"})

	rollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_optimistic_rollbacks_total",
		Help: "Optimistic list mutations rolled back after a remote failure.",
	}, []string{"list"})
)

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
)

// ObserveRequest records one REST round trip. status is 0 when no response
// was received.
func ObserveRequest(method string, status int, start time.Time) {
	apiRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func ObserveRefresh(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	tokenRefreshTotal.WithLabelValues(outcome).Inc()
}

func ObserveCacheLookup(cache, result string) {
	cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func ObserveRollback(list string) {
	rollbacksTotal.WithLabelValues(list).Inc()
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
