package exporter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zgpcy/status-exporter/internal/version"
)

// Metrics are the exporter's own operational instruments, as opposed to the
// data gauges that republish vendor state: build info, per-domain refresh
// accounting, per-vendor upstream request durations, and per-organization
// email outcomes.
type Metrics struct {
	BuildInfo        *prometheus.GaugeVec
	RefreshErrors    *prometheus.CounterVec
	RefreshDuration  *prometheus.SummaryVec
	UpstreamDuration *prometheus.SummaryVec
	EmailSuccess     *prometheus.CounterVec
	EmailErrors      *prometheus.CounterVec
}

// NewMetrics creates the meta metrics and stamps the build info series.
func NewMetrics() *Metrics {
	m := &Metrics{
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "status_exporter_build_info",
				Help: "Build version information",
			},
			[]string{"version", "commit", "build_date", "go_version"},
		),
		RefreshErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_exporter_refresh_errors_total",
				Help: "Total number of refresh and gauge synchronization failures per domain",
			},
			[]string{"domain"},
		),
		RefreshDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "status_exporter_refresh_duration_seconds",
				Help: "Duration of domain refreshes in seconds",
			},
			[]string{"domain"},
		),
		UpstreamDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "status_exporter_upstream_request_duration_seconds",
				Help: "Duration of upstream API request attempts in seconds",
			},
			[]string{"vendor"},
		),
		EmailSuccess: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_exporter_email_success_total",
				Help: "Summary emails sent successfully per organization",
			},
			[]string{"organization"},
		),
		EmailErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_exporter_email_errors_total",
				Help: "Summary email failures per organization; UNKNOWN counts report construction failures",
			},
			[]string{"organization"},
		),
	}

	info := version.Info()
	m.BuildInfo.With(prometheus.Labels{
		"version":    info["version"],
		"commit":     info["git_commit"],
		"build_date": info["build_date"],
		"go_version": info["go_version"],
	}).Set(1)

	return m
}

// Register registers every meta metric with the registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.BuildInfo,
		m.RefreshErrors,
		m.RefreshDuration,
		m.UpstreamDuration,
		m.EmailSuccess,
		m.EmailErrors,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
