package metrics

import (
	"sync"
	"time"

	"github.com/go-authgate/passport-local/passport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is everything the application reports. It also satisfies
// passport.Recorder so strategy outcomes are counted at the source.
type Recorder interface {
	passport.Recorder

	RecordLogout()
	RecordTokenIssued(success bool, duration time.Duration)
	RecordRateLimited(route string)
	SetUsersCount(authSource string, count int)
	RecordDatabaseQueryError(operation string)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication
	AuthAttemptsTotal *prometheus.CounterVec
	AuthDuration      *prometheus.HistogramVec
	LogoutsTotal      prometheus.Counter
	RateLimitedTotal  *prometheus.CounterVec

	// Tokens
	TokensIssuedTotal       *prometheus.CounterVec
	TokenGenerationDuration prometheus.Histogram

	// Users
	UsersTotal *prometheus.GaugeVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
	return defaultMetrics
}

// NewWithRegistry registers a fresh set of metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		AuthAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_auth_attempts_total",
				Help: "Total number of authenticate calls by strategy and outcome",
			},
			[]string{"strategy", "outcome"}, // outcome: success, failure, error
		),
		AuthDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "passport_auth_duration_seconds",
				Help:    "Time taken by a strategy to produce its outcome",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"strategy"},
		),
		LogoutsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "passport_logouts_total",
				Help: "Total number of logouts",
			},
		),
		RateLimitedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"route"},
		),

		TokensIssuedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_tokens_issued_total",
				Help: "Total number of access tokens issued by the login API",
			},
			[]string{"result"}, // success, error
		),
		TokenGenerationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "passport_token_generation_duration_seconds",
				Help:    "Time taken to sign an access token",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025},
			},
		),

		UsersTotal: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "passport_users",
				Help: "Current number of users by auth source",
			},
			[]string{"auth_source"},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		DatabaseQueryErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"},
		),
	}
}

// RecordOutcome records one authenticate call
func (m *Metrics) RecordOutcome(strategy string, kind passport.Kind, duration time.Duration) {
	m.AuthAttemptsTotal.WithLabelValues(strategy, kind.String()).Inc()
	m.AuthDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordLogout records logout
func (m *Metrics) RecordLogout() {
	m.LogoutsTotal.Inc()
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(success bool, duration time.Duration) {
	if !success {
		m.TokensIssuedTotal.WithLabelValues(resultError).Inc()
		return
	}
	m.TokensIssuedTotal.WithLabelValues(resultSuccess).Inc()
	m.TokenGenerationDuration.Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected by the rate limiter
func (m *Metrics) RecordRateLimited(route string) {
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// SetUsersCount sets the current count of users (for periodic updates)
func (m *Metrics) SetUsersCount(authSource string, count int) {
	m.UsersTotal.WithLabelValues(authSource).Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
