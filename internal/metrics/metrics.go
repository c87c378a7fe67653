package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edugen_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edugen_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GenerationsTotal counts pipeline outcomes per endpoint kind.
	// outcome is one of: success, invalid, unauthorized, rate_limited,
	// quota_exceeded, ledger_unavailable, upstream_error, invalid_response.
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edugen_generations_total",
			Help: "Total number of generation requests by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	CompletionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edugen_completion_duration_seconds",
			Help:    "Latency of upstream chat-completion calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"kind"},
	)

	PaymentVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edugen_payment_verifications_total",
			Help: "Total number of payment verifications by plan and result.",
		},
		[]string{"plan", "result"},
	)

	RateLimitDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edugen_rate_limit_denials_total",
			Help: "Requests rejected by a rate limiter.",
		},
		[]string{"scope"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edugen_events_published_total",
			Help: "Domain events published to NATS by subject and result.",
		},
		[]string{"subject", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		CompletionDuration,
		PaymentVerificationsTotal,
		RateLimitDenialsTotal,
		EventsPublishedTotal,
	)
}
