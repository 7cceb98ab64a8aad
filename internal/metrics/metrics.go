// Package metrics exposes Prometheus instrumentation for Squid Coin.
// All collectors live on a private registry so tests can create many instances.
// Every recording method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	signups      prometheus.Counter
	logins       *prometheus.CounterVec
	txCreated    prometheus.Counter
	txTransition *prometheus.CounterVec
	filesUpload  prometheus.Counter

	expiryRuns    prometheus.Counter
	expiredTx     prometheus.Counter
	expiryLastRun prometheus.Gauge
}

// New creates and registers all collectors, including the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squid_signups_total",
			Help: "Accounts created.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "squid_logins_total",
			Help: "Login attempts, by result.",
		}, []string{"result"}),
		txCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squid_transactions_created_total",
			Help: "Transactions recorded.",
		}),
		txTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "squid_transaction_transitions_total",
			Help: "Transaction status transitions, by target status.",
		}, []string{"status"}),
		filesUpload: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squid_files_uploaded_total",
			Help: "File records registered.",
		}),
		expiryRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squid_expiry_runs_total",
			Help: "Pending-transaction expiry runs.",
		}),
		expiredTx: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squid_expired_transactions_total",
			Help: "Pending transactions moved to failed by the expiry worker.",
		}),
		expiryLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "squid_expiry_last_run_timestamp",
			Help: "Unix time of the last completed expiry run.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.signups,
		m.logins,
		m.txCreated,
		m.txTransition,
		m.filesUpload,
		m.expiryRuns,
		m.expiredTx,
		m.expiryLastRun,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency keyed by the chi route pattern,
// so /api/transactions/{transactionId} is one series regardless of the ID.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Signup counts a created account.
func (m *Metrics) Signup() {
	if m == nil {
		return
	}
	m.signups.Inc()
}

// Login counts a login attempt. result is "success", "failure" or "throttled".
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// TransactionCreated counts a recorded transaction.
func (m *Metrics) TransactionCreated() {
	if m == nil {
		return
	}
	m.txCreated.Inc()
}

// TransactionTransition counts a status change.
func (m *Metrics) TransactionTransition(status string) {
	if m == nil {
		return
	}
	m.txTransition.WithLabelValues(status).Inc()
}

// FileUploaded counts a registered file record.
func (m *Metrics) FileUploaded() {
	if m == nil {
		return
	}
	m.filesUpload.Inc()
}

// ExpiryRun records one expiry pass and how many transactions it failed.
func (m *Metrics) ExpiryRun(expired int, at time.Time) {
	if m == nil {
		return
	}
	m.expiryRuns.Inc()
	m.expiredTx.Add(float64(expired))
	m.expiryLastRun.Set(float64(at.Unix()))
}
