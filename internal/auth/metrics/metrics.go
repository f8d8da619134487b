// Package metrics collects and exposes Prometheus metrics for the auth
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records auth flow outcomes and HTTP request durations.
type Collector struct {
	registry *prometheus.Registry

	registrations  prometheus.Counter
	logins         prometheus.Counter
	loginFailures  prometheus.Counter
	refreshRotated prometheus.Counter
	emailsSent     *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	httpDuration   prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_registrations_total",
			Help: "Total number of successful user registrations",
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_logins_total",
			Help: "Total number of successful logins",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		refreshRotated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_refresh_rotations_total",
			Help: "Total number of refresh token rotations",
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_emails_sent_total",
			Help: "Total number of outbound emails by kind",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_http_status_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatehouse_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(
		c.registrations,
		c.logins,
		c.loginFailures,
		c.refreshRotated,
		c.emailsSent,
		c.httpStatus,
		c.httpDuration,
	)

	return c
}

func (c *Collector) RecordRegistration()    { c.registrations.Inc() }
func (c *Collector) RecordLogin()           { c.logins.Inc() }
func (c *Collector) RecordLoginFailure()    { c.loginFailures.Inc() }
func (c *Collector) RecordRefreshRotation() { c.refreshRotated.Inc() }

func (c *Collector) RecordEmailSent(kind string) {
	c.emailsSent.WithLabelValues(kind).Inc()
}

// Handler returns the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records status codes and request durations.
func (c *Collector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		c.httpStatus.WithLabelValues(strconv.Itoa(rw.status)).Inc()
		c.httpDuration.Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
