// Package metrics exposes pipeline counters. A nil *Metrics is valid and
// records nothing, so services can take one unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	vendorRequests   *prometheus.CounterVec
	extractionTier   *prometheus.CounterVec
	filterRejections *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
}

func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		vendorRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendformats_vendor_requests_total",
			Help: "Scraper API calls by platform, endpoint and outcome",
		}, []string{"platform", "endpoint", "outcome"}),

		extractionTier: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendformats_extraction_tier_total",
			Help: "Format extractions by the tier that produced the result",
		}, []string{"tier"}),

		filterRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendformats_filter_rejections_total",
			Help: "Vendor items rejected by reason",
		}, []string{"reason"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendformats_http_requests_total",
			Help: "HTTP requests by route and status class",
		}, []string{"route", "status"}),

		pipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendformats_pipeline_duration_seconds",
			Help:    "End to end trending pipeline duration",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"platform", "outcome"}),

		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trendformats_circuit_open",
			Help: "1 while the named circuit breaker is open",
		}, []string{"breaker"}),
	}
}

func (m *Metrics) IncVendorRequest(platform, endpoint, outcome string) {
	if m == nil {
		return
	}
	m.vendorRequests.WithLabelValues(platform, endpoint, outcome).Inc()
}

func (m *Metrics) IncExtractionTier(tier string) {
	if m == nil {
		return
	}
	m.extractionTier.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncFilterRejection(reason string) {
	if m == nil {
		return
	}
	m.filterRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func (m *Metrics) ObservePipeline(platform, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.pipelineDuration.WithLabelValues(platform, outcome).Observe(d.Seconds())
}

func (m *Metrics) SetBreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
