package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScrapeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertify_scrape_attempts_total",
			Help: "Scrape attempts by shop and outcome",
		},
		[]string{"shop", "outcome"},
	)

	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertify_scrape_duration_seconds",
			Help:    "End-to-end duration of one scrape attempt",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		},
		[]string{"shop"},
	)

	RequestsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alertify_scrape_requests_published_total",
			Help: "Scrape requests emitted by the scheduler",
		},
	)

	ResultsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertify_scrape_results_applied_total",
			Help: "Scrape results processed by the tracking consumer",
		},
		[]string{"outcome"},
	)

	MessagesRetried = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertify_messages_retried_total",
			Help: "Messages scheduled for redelivery after a transient failure",
		},
		[]string{"stream"},
	)

	MessagesDeadLettered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertify_messages_dead_lettered_total",
			Help: "Messages routed to the dead-letter stream",
		},
		[]string{"stream"},
	)
)

func init() {
	prometheus.MustRegister(
		ScrapeAttempts,
		ScrapeDuration,
		RequestsPublished,
		ResultsApplied,
		MessagesRetried,
		MessagesDeadLettered,
	)
}
