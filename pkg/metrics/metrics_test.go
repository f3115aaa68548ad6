package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetricsValues(t *testing.T) {
	m := NewRunMetrics()
	finished := time.Unix(1710504000, 0)

	m.ObserveRun(true, 1500*time.Millisecond, finished)
	m.SetSinkSuccess("mysql", true)
	m.SetSinkSuccess("influxdb", false)
	m.SetTelemetryValue("pv_power_w", 3218.5)
	m.SetTelemetryValue("pv_day_energy_wh", int64(8042))
	m.SetTelemetryValue("ignored", "text")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunSuccess))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RunDuration))
	assert.Equal(t, 1710504000.0, testutil.ToFloat64(m.LastRunTimestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkSuccess.WithLabelValues("mysql")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SinkSuccess.WithLabelValues("influxdb")))
	assert.Equal(t, 3218.5, testutil.ToFloat64(m.TelemetryValue.WithLabelValues("pv_power_w")))
	assert.Equal(t, 8042.0, testutil.ToFloat64(m.TelemetryValue.WithLabelValues("pv_day_energy_wh")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.TelemetryValue))
}

func TestPush(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewRunMetrics()
	m.ObserveRun(false, time.Second, time.Now())

	require.NoError(t, m.Push(context.Background(), srv.URL, "sunpoll", time.Second))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/sunpoll", path)
	assert.NotEmpty(t, body)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewRunMetrics().Push(context.Background(), srv.URL, "sunpoll", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}
