package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	// Probe metrics
	probesSuccess prometheus.Counter
	probesFailure prometheus.Counter
	probeDuration prometheus.Histogram

	// Run results
	endpointsTotal prometheus.Gauge
	statusCount    *prometheus.GaugeVec
	runDuration    prometheus.Histogram

	// Relay metrics
	relayRequests  *prometheus.CounterVec
	relayDuration  *prometheus.HistogramVec
	upstreamErrors prometheus.Counter

	// Feed metrics
	feedReloads *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		probesSuccess: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_success_total",
				Help:      "Total number of successful endpoint probes",
			},
		),
		probesFailure: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_failure_total",
				Help:      "Total number of failed endpoint probes",
			},
		),
		probeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Endpoint probe duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		endpointsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "endpoints_total",
				Help:      "Number of configured endpoints",
			},
		),
		statusCount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "endpoint_status",
				Help:      "Number of endpoints per status bucket",
			},
			[]string{"status"},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of a full health-check run in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		relayRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_requests_total",
				Help:      "Total number of relay HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		relayDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relay_request_duration_seconds",
				Help:      "Relay request duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 30},
			},
			[]string{"method", "endpoint"},
		),
		upstreamErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_upstream_errors_total",
				Help:      "Total number of failed upstream fetches",
			},
		),
		feedReloads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_reloads_total",
				Help:      "Total number of endpoint document reloads",
			},
			[]string{"result"},
		),
	}
}

func (c *Collector) RecordProbeSuccess()           { c.probesSuccess.Inc() }
func (c *Collector) RecordProbeFailure()           { c.probesFailure.Inc() }
func (c *Collector) RecordProbeDuration(s float64) { c.probeDuration.Observe(s) }
func (c *Collector) RecordRunDuration(s float64)   { c.runDuration.Observe(s) }

func (c *Collector) RecordEndpoints(total int, byStatus map[string]int) {
	c.endpointsTotal.Set(float64(total))
	for status, n := range byStatus {
		c.statusCount.WithLabelValues(status).Set(float64(n))
	}
}

func (c *Collector) RecordRelayRequest(method, endpoint, status string) {
	c.relayRequests.WithLabelValues(method, endpoint, status).Inc()
}

func (c *Collector) RecordRelayDuration(method, endpoint string, seconds float64) {
	c.relayDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

func (c *Collector) RecordUpstreamError() { c.upstreamErrors.Inc() }

func (c *Collector) RecordFeedReload(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.feedReloads.WithLabelValues(result).Inc()
}
