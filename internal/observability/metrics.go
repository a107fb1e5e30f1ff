// Package observability holds the Prometheus metrics of the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeInvalid          = "invalid_credentials"
	OutcomeLocked           = "locked"
	OutcomeUnverified       = "email_not_verified"
	OutcomeDeactivated      = "deactivated"
	OutcomeInvalidOrExpired = "invalid_or_expired"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	LoginTotal            *prometheus.CounterVec
	LockoutsTotal         prometheus.Counter
	OTPVerificationsTotal *prometheus.CounterVec
	AccessDeniedTotal     *prometheus.CounterVec
	RateLimitedTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepmaster_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prepmaster_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepmaster_auth_login_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		LockoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prepmaster_auth_lockouts_total",
				Help: "Accounts locked after repeated login failures",
			},
		),
		OTPVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepmaster_auth_otp_verifications_total",
				Help: "OTP verification attempts by outcome",
			},
			[]string{"outcome"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepmaster_access_denied_total",
				Help: "Requests denied by the access control chain, by stage",
			},
			[]string{"stage"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepmaster_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginTotal,
		m.LockoutsTotal,
		m.OTPVerificationsTotal,
		m.AccessDeniedTotal,
		m.RateLimitedTotal,
	)

	return m
}

func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.LoginTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Lockout() {
	if m != nil {
		m.LockoutsTotal.Inc()
	}
}

func (m *Metrics) OTPVerification(outcome string) {
	if m != nil {
		m.OTPVerificationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AccessDenied(stage string) {
	if m != nil {
		m.AccessDeniedTotal.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) RateLimited(route string) {
	if m != nil {
		m.RateLimitedTotal.WithLabelValues(route).Inc()
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. Requests are labelled with the
// chi route pattern, not the raw path, to keep label cardinality bounded.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := RoutePattern(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RoutePattern returns the matched chi route pattern, or "unmatched".
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Handler returns the /metrics endpoint for registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
