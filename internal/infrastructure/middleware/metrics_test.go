package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"shopify-embed-auth/internal/application"
)

func TestObserveDecision(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveDecision(application.OutcomeAuthorized)
	m.ObserveDecision(application.OutcomeAuthorized)
	m.ObserveDecision(application.OutcomeReauthRequired)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("authorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("reauth_required")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.decisions.WithLabelValues("blocked")))
}

func TestObserveResolution(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveResolution("token")
	m.ObserveResolution("token")
	m.ObserveResolution("cookie")
	m.ObserveResolution("none")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("cookie")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("none")))
}

func TestMetricsHandlerCountsByRoutePattern(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Handler())
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/products/{id}", "200")))
}
