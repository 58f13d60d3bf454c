// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queueDepth             prometheus.Gauge
	inFlightSubmissions    prometheus.Gauge
	submissionsTotal       *prometheus.CounterVec
	recordsTotal           *prometheus.CounterVec
	deliveryFailuresTotal  prometheus.Counter
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSec *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dovescraper_queue_depth",
				Help: "Number of submission files waiting in the incoming directory.",
			},
		)

		inFlightSubmissions = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dovescraper_inflight_submissions",
				Help: "Number of submissions currently being processed.",
			},
		)

		submissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dovescraper_submissions_total",
				Help: "Total number of submissions finished, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dovescraper_records_total",
				Help: "Total number of member records processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		deliveryFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dovescraper_delivery_failures_total",
				Help: "Total downstream delivery attempts that failed.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dovescraper_http_requests_total",
				Help: "Total number of intake HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dovescraper_http_request_duration_seconds",
				Help:    "Histogram of intake HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetQueueDepth records the current incoming-directory depth.
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// IncInFlight increments the in-flight submissions gauge.
func IncInFlight() {
	inFlightSubmissions.Inc()
}

// DecInFlight decrements the in-flight submissions gauge.
func DecInFlight() {
	inFlightSubmissions.Dec()
}

// ObserveSubmission increments the submission counter for the given outcome.
func ObserveSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecord increments the record counter for the given outcome.
func ObserveRecord(outcome string) {
	recordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDeliveryFailure increments the delivery failure counter.
func ObserveDeliveryFailure() {
	deliveryFailuresTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSec.WithLabelValues(method, route).Observe(duration.Seconds())
}
