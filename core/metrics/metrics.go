package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "segments"

var (
	Registry = prometheus.NewRegistry()

	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Total number of segment refreshes by outcome.",
		},
		[]string{"status"},
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of segment refreshes.",
			// 10ms .. ~80s
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)

	MembershipChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_changes_total",
			Help:      "Members added to or removed from segments.",
		},
		[]string{"op"},
	)

	InvalidRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_rows_total",
			Help:      "Rows rejected because their first column is not a member id.",
		},
	)

	Teardowns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardowns_total",
			Help:      "Segments removed from the index.",
		},
	)

	ChangesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_published_total",
			Help:      "Change queue entries handed to the downstream publisher.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(RefreshesTotal, RefreshDuration, MembershipChanges, InvalidRows, Teardowns, ChangesPublished)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
