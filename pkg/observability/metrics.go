package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
)

// Fatal error kinds recorded by ObserveFatal.
const (
	FatalUsage  = "usage"
	FatalConfig = "config"
	FatalInput  = "input"
	FatalIO     = "io"
)

// Metrics collects per-run counters in a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	validations *prometheus.CounterVec
	findings    *prometheus.CounterVec
	fatal       *prometheus.CounterVec
	lastRun     prometheus.Gauge
}

// NewMetrics creates and registers the cdmcheck metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdmcheck",
			Name:      "validations_total",
			Help:      "Validated messages by overall result.",
		}, []string{"ok"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdmcheck",
			Name:      "findings_total",
			Help:      "Findings by check code and severity.",
		}, []string{"code", "severity"}),
		fatal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdmcheck",
			Name:      "fatal_errors_total",
			Help:      "Runs aborted before a report was produced, by error kind.",
		}, []string{"kind"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cdmcheck",
			Name:      "last_report_timestamp_seconds",
			Help:      "Report time of the most recent validation.",
		}),
	}
	m.registry.MustRegister(m.validations, m.findings, m.fatal, m.lastRun)
	return m
}

// ObserveReport counts a finished validation and its findings.
func (m *Metrics) ObserveReport(report *conform.Report) {
	m.validations.WithLabelValues(fmt.Sprint(report.OK)).Inc()
	for _, f := range report.Findings {
		m.findings.WithLabelValues(f.Code, f.Severity.String()).Inc()
	}
	m.lastRun.Set(float64(report.ReportTime.UnixNano()) / 1e9)
}

// ObserveFatal counts an aborted run.
func (m *Metrics) ObserveFatal(kind string) {
	m.fatal.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the current values to path in the text exposition
// format, replacing the file atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
