package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Signup()
		m.Login("success")
		m.TransactionCreated()
		m.TransactionTransition("completed")
		m.FileUploaded()
		m.ExpiryRun(3, time.Now())
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.Signup()
	m.Login("failure")
	m.Login("failure")
	m.ExpiryRun(4, time.Unix(1700000000, 0))

	body := scrape(t, m)
	assert.Contains(t, body, "squid_signups_total 1")
	assert.Contains(t, body, `squid_logins_total{result="failure"} 2`)
	assert.Contains(t, body, "squid_expired_transactions_total 4")
	assert.Contains(t, body, "squid_expiry_last_run_timestamp 1.7e+09")
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/files/{hash}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, hash := range []string{"aa", "bb"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/files/"+hash, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/files/{hash}",status="404"} 2`)
	assert.NotContains(t, body, "/files/aa")
}
