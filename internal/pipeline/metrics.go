package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"churnsim/internal/export"
)

const namespace = "churnsim"

// Metrics collects run statistics in a private registry so they can be
// written as a textfile once the run ends.
type Metrics struct {
	registry      *prometheus.Registry
	rows          prometheus.Gauge
	stageDuration *prometheus.GaugeVec
	stageFailures *prometheus.CounterVec
	locationRate  *prometheus.GaugeVec
	churnRate     prometheus.Gauge
	meanChurnProb prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewMetrics registers the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Customers in the generated dataset.",
		}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Pipeline stages that returned an error.",
		}, []string{"stage"}),
		locationRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "location_churn_rate",
			Help:      "Share of churned customers per location.",
		}, []string{"location"}),
		churnRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "churn_rate",
			Help:      "Share of churned customers.",
		}),
		meanChurnProb: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_churn_probability",
			Help:      "Mean simulated churn probability.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}

	m.registry.MustRegister(
		m.rows,
		m.stageDuration,
		m.stageFailures,
		m.locationRate,
		m.churnRate,
		m.meanChurnProb,
		m.lastSuccess,
	)

	return m
}

// ObserveStage records how long a stage ran and whether it failed.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Set(elapsed.Seconds())

	if err != nil {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

// ObserveSummary records the verification figures of a run.
func (m *Metrics) ObserveSummary(s export.Summary) {
	m.rows.Set(float64(s.Rows))
	m.churnRate.Set(s.ChurnRate)
	m.meanChurnProb.Set(s.MeanChurnProb)

	for _, loc := range s.ByLocation {
		m.locationRate.WithLabelValues(loc.Location).Set(loc.Rate)
	}
}

// MarkSuccess stamps the completion time.
func (m *Metrics) MarkSuccess(at time.Time) {
	m.lastSuccess.Set(float64(at.Unix()))
}

// WriteText writes the registry in the text exposition format read by the
// node exporter textfile collector.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}
