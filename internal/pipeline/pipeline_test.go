package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sunpoll/internal/logger"
	"sunpoll/internal/sink"
	"sunpoll/internal/telemetry"
	"sunpoll/pkg/clock"
	apperrors "sunpoll/pkg/errors"
)

const testURL = "http://inverter.local/solar_api/v1/GetPowerFlowRealtimeData.fcgi"

type fakeFetcher struct {
	body  []byte
	err   error
	calls int
	onGet func()
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if f.onGet != nil {
		f.onGet()
	}
	if url != testURL {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return f.body, f.err
}

type recordingSink struct {
	name       string
	err        error
	deliveries []sink.Delivery
}

func (s *recordingSink) Name() string {
	return s.name
}

func (s *recordingSink) Persist(ctx context.Context, d sink.Delivery) error {
	s.deliveries = append(s.deliveries, d)
	return s.err
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "telemetry", "testdata", name))
	require.NoError(t, err)
	return b
}

func siteExtractor(t *testing.T) *telemetry.Extractor {
	t.Helper()
	ex, err := telemetry.NewExtractor(telemetry.SiteSchema)
	require.NoError(t, err)
	return ex
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "run-" + strconv.Itoa(n)
	}
}

func newPipeline(t *testing.T, f *fakeFetcher, sinks ...sink.Sink) *Pipeline {
	t.Helper()
	return New(testURL, f, siteExtractor(t), sinks, logger.NopLogger(),
		WithRunIDGenerator(sequentialIDs()),
	)
}

func TestRunDeliversToEverySink(t *testing.T) {
	stdout := &recordingSink{name: "stdout"}
	mysql := &recordingSink{name: "mysql"}
	influx := &recordingSink{name: "influxdb"}

	f := &fakeFetcher{body: fixture(t, "powerflow.json")}
	res := newPipeline(t, f, stdout, mysql, influx).Run(context.Background())

	require.NoError(t, res.Err)
	assert.False(t, res.Failed())
	assert.Equal(t, PhaseDone, res.Phase)
	assert.Empty(t, res.FailedPhase)
	assert.Equal(t, "run-1", res.RunID)

	require.NotNil(t, res.Record)
	assert.Equal(t, telemetry.SiteSchema.Fields[0].Name, res.Record.Names()[0])
	assert.Equal(t, len(telemetry.SiteSchema.Fields), res.Record.Len())

	for _, s := range []*recordingSink{stdout, mysql, influx} {
		require.Len(t, s.deliveries, 1, s.name)
		assert.Same(t, res.Record, s.deliveries[0].Record)
		assert.Equal(t, "run-1", s.deliveries[0].RunID)
		assert.NotNil(t, s.deliveries[0].Tree)
	}

	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, []string{"stdout", "mysql", "influxdb"},
		[]string{res.Outcomes[0].Sink, res.Outcomes[1].Sink, res.Outcomes[2].Sink})
}

func TestRunOneSinkFailureDoesNotStopOthers(t *testing.T) {
	stdout := &recordingSink{name: "stdout"}
	mysql := &recordingSink{
		name: "mysql",
		err:  apperrors.ErrSink.WithCause(fmt.Errorf("access denied")).WithDetail("sink", "mysql"),
	}
	influx := &recordingSink{name: "influxdb"}

	f := &fakeFetcher{body: fixture(t, "powerflow.json")}
	res := newPipeline(t, f, stdout, mysql, influx).Run(context.Background())

	assert.True(t, res.Failed())
	assert.Equal(t, PhaseFanningOut, res.FailedPhase)
	assert.True(t, apperrors.IsSink(res.Err))
	assert.ErrorIs(t, res.Err, apperrors.ErrSink)

	assert.Len(t, stdout.deliveries, 1)
	assert.Len(t, mysql.deliveries, 1)
	assert.Len(t, influx.deliveries, 1)

	assert.Equal(t, []string{"mysql"}, res.SinksFailed())
	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].OK())
	assert.False(t, res.Outcomes[1].OK())
	assert.True(t, res.Outcomes[2].OK())
}

func TestRunAllSinkErrorsAreJoined(t *testing.T) {
	a := &recordingSink{name: "mysql", err: fmt.Errorf("mysql down")}
	b := &recordingSink{name: "redis", err: fmt.Errorf("redis down")}

	f := &fakeFetcher{body: fixture(t, "powerflow.json")}
	res := newPipeline(t, f, a, b).Run(context.Background())

	require.True(t, res.Failed())
	assert.Contains(t, res.Err.Error(), "mysql down")
	assert.Contains(t, res.Err.Error(), "redis down")
	assert.Equal(t, []string{"mysql", "redis"}, res.SinksFailed())
}

func TestRunWithoutSinksSucceeds(t *testing.T) {
	f := &fakeFetcher{body: fixture(t, "powerflow.json")}
	res := newPipeline(t, f).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, PhaseDone, res.Phase)
	assert.NotNil(t, res.Record)
	assert.Empty(t, res.Outcomes)
}

func TestRunNullAsZeroFields(t *testing.T) {
	f := &fakeFetcher{body: fixture(t, "powerflow_night.json")}
	res := newPipeline(t, f).Run(context.Background())

	require.NoError(t, res.Err)
	v, ok := res.Record.Get("pv_power_w")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestRunEarlyFailuresInvokeNoSink(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		phase   Phase
		isCode  func(error) bool
	}{
		{
			name:    "fetch",
			fetcher: &fakeFetcher{err: apperrors.ErrFetch.WithMessage("timeout")},
			phase:   PhaseFetching,
			isCode:  apperrors.IsFetch,
		},
		{
			name:    "malformed",
			fetcher: &fakeFetcher{body: []byte(`{"Body":`)},
			phase:   PhaseParsing,
			isCode:  apperrors.IsParse,
		},
		{
			name:    "array root",
			fetcher: &fakeFetcher{body: []byte(`[1,2,3]`)},
			phase:   PhaseParsing,
			isCode:  apperrors.IsParse,
		},
		{
			name:    "missing field",
			fetcher: &fakeFetcher{body: []byte(`{"Body":{"Data":{"Site":{"P_PV":1}}}}`)},
			phase:   PhaseExtracting,
			isCode:  apperrors.IsExtraction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSink{name: "stdout"}
			res := newPipeline(t, tt.fetcher, s).Run(context.Background())

			require.True(t, res.Failed())
			assert.Equal(t, tt.phase, res.FailedPhase)
			assert.True(t, tt.isCode(res.Err), res.Err)
			assert.Nil(t, res.Record)
			assert.Empty(t, res.Outcomes)
			assert.Empty(t, s.deliveries)
		})
	}
}

func TestRunTwiceDeliversTwice(t *testing.T) {
	s := &recordingSink{name: "mysql"}
	f := &fakeFetcher{body: fixture(t, "powerflow.json")}
	p := newPipeline(t, f, s)

	first := p.Run(context.Background())
	second := p.Run(context.Background())

	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, 2, f.calls)
	require.Len(t, s.deliveries, 2)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, s.deliveries[0].Record.Values(), s.deliveries[1].Record.Values())
}

func TestRunMeasuresDuration(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC))
	f := &fakeFetcher{
		body:  fixture(t, "powerflow.json"),
		onGet: func() { clk.Add(1500 * time.Millisecond) },
	}

	p := New(testURL, f, siteExtractor(t), nil, logger.NopLogger(), WithClock(clk))
	res := p.Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 1500*time.Millisecond, res.Duration)
	assert.NotEmpty(t, res.RunID)
}

func TestRunLogsRunContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := &recordingSink{name: "redis", err: fmt.Errorf("boom")}
	f := &fakeFetcher{body: fixture(t, "powerflow.json")}

	p := New(testURL, f, siteExtractor(t), []sink.Sink{s}, logger.NewWithCore(core),
		WithRunIDGenerator(sequentialIDs()),
	)
	p.Run(context.Background())

	sinkLogs := logs.FilterMessage("Sink failed").AllUntimed()
	require.Len(t, sinkLogs, 1)
	fields := sinkLogs[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "site", fields["schema"])
	assert.Equal(t, "redis", fields["sink"])

	phases := logs.FilterMessage("Entering phase").AllUntimed()
	var seen []string
	for _, e := range phases {
		seen = append(seen, e.ContextMap()["phase"].(string))
	}
	assert.Equal(t, []string{"fetching", "parsing", "extracting", "validating", "fanning_out"}, seen)
}

type panickingSink struct{}

func (panickingSink) Name() string {
	return "kafka"
}

func (panickingSink) Persist(ctx context.Context, d sink.Delivery) error {
	var m map[string]int
	m["boom"]++
	return nil
}

func TestRunSinkPanicIsIsolated(t *testing.T) {
	after := &recordingSink{name: "redis"}
	f := &fakeFetcher{body: fixture(t, "powerflow.json")}

	res := newPipeline(t, f, panickingSink{}, after).Run(context.Background())

	require.True(t, res.Failed())
	assert.Equal(t, PhaseFanningOut, res.FailedPhase)
	assert.Len(t, after.deliveries, 1)
	assert.Equal(t, []string{"kafka"}, res.SinksFailed())
	assert.True(t, apperrors.IsSink(res.Outcomes[0].Err))
	assert.ErrorIs(t, res.Outcomes[0].Err, apperrors.ErrInternal)
}
