package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_api_active_requests",
			Help: "Requests currently being served",
		},
	)

	// Auth flow
	ConfirmationCodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_confirmation_codes_issued_total",
			Help: "Confirmation codes issued, by reason (register, retry)",
		},
		[]string{"reason"},
	)

	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_token_exchanges_total",
			Help: "Confirmation code exchanges, by outcome",
		},
		[]string{"outcome"}, // "ok", "rejected", "throttled"
	)

	// Mail delivery
	MailPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mail_published_total",
			Help: "Confirmation mails handed to the transport, by result",
		},
		[]string{"transport", "result"},
	)

	MailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_mail_breaker_state",
			Help: "Mail publisher circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Response cache
	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_response_cache_total",
			Help: "Response cache lookups, by result (hit, miss)",
		},
		[]string{"result"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMail records one delivery attempt.
func RecordMail(transport string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	MailPublished.WithLabelValues(transport, result).Inc()
}
