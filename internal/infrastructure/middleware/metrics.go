package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shopify-embed-auth/internal/application"
)

// Metrics exposes the counters behind the /metrics endpoint
type Metrics struct {
	decisions   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the metrics on the given registerer. Tests pass a
// fresh registry; main passes the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_auth_decisions_total",
			Help: "Access decisions by outcome.",
		}, []string{"outcome"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_session_resolutions_total",
			Help: "Session resolution attempts by offered credential.",
		}, []string{"credential"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveDecision counts one access decision
func (m *Metrics) ObserveDecision(outcome application.Outcome) {
	m.decisions.WithLabelValues(outcome.String()).Inc()
}

// ObserveResolution counts one resolution attempt by the credential the
// request offered: token, cookie or none
func (m *Metrics) ObserveResolution(credential string) {
	m.resolutions.WithLabelValues(credential).Inc()
}

// Handler returns middleware that counts and times every request by its
// chi route pattern, keeping label cardinality bounded
func (m *Metrics) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
