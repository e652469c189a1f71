// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services and middleware.
type Recorder interface {
	RecordSignup(stage string)
	RecordLogin(result string)
	RecordApplication()
	RecordStatusUpdate(status string)
	RecordNotifierFailure(channel string)
	RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	signups          *prometheus.CounterVec
	logins           *prometheus.CounterVec
	applications     prometheus.Counter
	statusUpdates    *prometheus.CounterVec
	notifierFailures *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirehub_signups_total",
			Help: "Signup flow events by stage (requested, verified).",
		}, []string{"stage"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirehub_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		applications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hirehub_applications_total",
			Help: "Applications submitted.",
		}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirehub_application_status_updates_total",
			Help: "Application status changes by new status.",
		}, []string{"status"}),
		notifierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirehub_notifier_failures_total",
			Help: "Swallowed notification failures by channel (email, in_app).",
		}, []string{"channel"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirehub_http_requests_total",
			Help: "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hirehub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.signups,
		c.logins,
		c.applications,
		c.statusUpdates,
		c.notifierFailures,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordSignup(stage string) {
	c.signups.WithLabelValues(stage).Inc()
}

func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordApplication() {
	c.applications.Inc()
}

func (c *Collector) RecordStatusUpdate(status string) {
	c.statusUpdates.WithLabelValues(status).Inc()
}

func (c *Collector) RecordNotifierFailure(channel string) {
	c.notifierFailures.WithLabelValues(channel).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Nop discards everything. Used when no collector is configured.
type Nop struct{}

func (Nop) RecordSignup(string)                                  {}
func (Nop) RecordLogin(string)                                   {}
func (Nop) RecordApplication()                                   {}
func (Nop) RecordStatusUpdate(string)                            {}
func (Nop) RecordNotifierFailure(string)                         {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
