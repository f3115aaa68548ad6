package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RunMetrics holds the gauges describing one poll. They live in a private
// registry so a push carries only this run's values.
type RunMetrics struct {
	registry *prometheus.Registry

	RunSuccess       prometheus.Gauge
	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
	SinkSuccess      *prometheus.GaugeVec
	TelemetryValue   *prometheus.GaugeVec
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),

		RunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sunpoll_run_success",
				Help: "1 if the last run completed without any phase or sink failure, 0 otherwise",
			},
		),

		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sunpoll_run_duration_seconds",
				Help: "Wall time of the last run in seconds",
			},
		),

		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sunpoll_last_run_timestamp_seconds",
				Help: "Unix time at which the last run finished",
			},
		),

		SinkSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sunpoll_sink_success",
				Help: "1 if the sink accepted the last record, 0 otherwise",
			},
			[]string{"sink"},
		),

		TelemetryValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sunpoll_telemetry_value",
				Help: "Last validated telemetry reading by field",
			},
			[]string{"field"},
		),
	}

	m.registry.MustRegister(
		m.RunSuccess,
		m.RunDuration,
		m.LastRunTimestamp,
		m.SinkSuccess,
		m.TelemetryValue,
	)

	return m
}

func (m *RunMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *RunMetrics) ObserveRun(success bool, duration time.Duration, finished time.Time) {
	m.RunSuccess.Set(boolToFloat(success))
	m.RunDuration.Set(duration.Seconds())
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

func (m *RunMetrics) SetSinkSuccess(sink string, ok bool) {
	m.SinkSuccess.WithLabelValues(sink).Set(boolToFloat(ok))
}

// SetTelemetryValue records a reading. Values that are not int64 or float64
// are ignored.
func (m *RunMetrics) SetTelemetryValue(field string, value interface{}) {
	switch v := value.(type) {
	case int64:
		m.TelemetryValue.WithLabelValues(field).Set(float64(v))
	case float64:
		m.TelemetryValue.WithLabelValues(field).Set(v)
	}
}

// Push replaces the job's metric group on the Pushgateway at url.
func (m *RunMetrics) Push(ctx context.Context, url, job string, timeout time.Duration) error {
	pusher := push.New(url, job).
		Gatherer(m.registry).
		Client(&http.Client{Timeout: timeout})

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
