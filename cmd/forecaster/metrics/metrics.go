// Package metrics provides Prometheus metrics instrumentation for the forecaster.
//
// Metrics exposed:
//   - chronocast_source_query_seconds: Histogram of context window query duration
//   - chronocast_endpoint_invoke_seconds: Histogram of forecast endpoint call duration
//   - chronocast_assemble_seconds: Histogram of response assembly duration
//   - chronocast_context_points: Gauge of observations sent in the last request
//   - chronocast_forecast_rows: Gauge of rows in the last forecast
//   - chronocast_errors_total: Counter of errors by stage and reason
//
// In HTTP mode the metrics are served on /metrics. Under Lambda they are
// collected but never scraped, which keeps the code path identical.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the forecaster.
type Metrics struct {
	SourceQuerySeconds    prometheus.Histogram
	EndpointInvokeSeconds prometheus.Histogram
	AssembleSeconds       prometheus.Histogram
	ContextPoints         prometheus.Gauge
	ForecastRows          prometheus.Gauge
	ErrorsTotal           *prometheus.CounterVec
}

// New creates all metrics and registers them with the default registerer.
func New(source, endpoint string) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, source, endpoint)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer, source, endpoint string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SourceQuerySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "chronocast_source_query_seconds",
			Help: "Time spent fetching the context window from the source",
			ConstLabels: prometheus.Labels{
				"source": source,
			},
			Buckets: prometheus.DefBuckets,
		}),

		EndpointInvokeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "chronocast_endpoint_invoke_seconds",
			Help: "Time spent waiting for the forecast endpoint",
			ConstLabels: prometheus.Labels{
				"endpoint": endpoint,
			},
			// Cold endpoints take tens of seconds.
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),

		AssembleSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronocast_assemble_seconds",
			Help:    "Time spent assembling the forecast table",
			Buckets: prometheus.DefBuckets,
		}),

		ContextPoints: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chronocast_context_points",
			Help: "Observations sent as context in the last forecast",
		}),

		ForecastRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chronocast_forecast_rows",
			Help: "Rows produced by the last forecast",
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chronocast_errors_total",
			Help: "Total number of errors by pipeline stage and reason",
		}, []string{"stage", "reason"}),
	}
}

// RecordQuery records the time spent fetching observations.
func (m *Metrics) RecordQuery(seconds float64) {
	m.SourceQuerySeconds.Observe(seconds)
}

// RecordInvoke records the time spent calling the endpoint.
func (m *Metrics) RecordInvoke(seconds float64) {
	m.EndpointInvokeSeconds.Observe(seconds)
}

// RecordAssemble records the time spent assembling rows.
func (m *Metrics) RecordAssemble(seconds float64) {
	m.AssembleSeconds.Observe(seconds)
}

// SetContextPoints sets the number of observations in the last request.
func (m *Metrics) SetContextPoints(n int) {
	m.ContextPoints.Set(float64(n))
}

// SetForecastRows sets the number of rows in the last forecast.
func (m *Metrics) SetForecastRows(n int) {
	m.ForecastRows.Set(float64(n))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(stage, reason string) {
	m.ErrorsTotal.WithLabelValues(stage, reason).Inc()
}
