// Package metrics exposes intake pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements application.Recorder on top of Prometheus.
type Collector struct {
	submissions   *prometheus.CounterVec
	storeLatency  prometheus.Histogram
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

// NewCollector registers the intake metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Contact submissions by terminal outcome.",
		}, []string{"outcome"}),
		storeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_store_insert_seconds",
			Help:    "Latency of submission inserts.",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_notifications_total",
			Help: "Notification send attempts by kind and result.",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_rate_limited_total",
			Help: "Submissions rejected by the per-IP limiter.",
		}),
	}

	reg.MustRegister(
		c.submissions,
		c.storeLatency,
		c.notifications,
		c.httpRequests,
		c.rateLimited,
	)
	return c
}

func (c *Collector) RecordSubmission(outcome string) {
	c.submissions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordStoreLatency(d time.Duration) {
	c.storeLatency.Observe(d.Seconds())
}

func (c *Collector) RecordNotification(kind, result string) {
	c.notifications.WithLabelValues(kind, result).Inc()
}

// RecordHTTPStatus counts one response.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRateLimited counts one throttled request.
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
