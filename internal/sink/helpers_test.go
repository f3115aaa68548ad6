package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sunpoll/internal/telemetry"
	"sunpoll/pkg/clock"
)

var march2024 = time.Date(2024, time.March, 15, 12, 30, 0, 0, time.UTC)

func testRecord(t *testing.T) *telemetry.Record {
	t.Helper()
	rec, err := telemetry.NewRecord(
		telemetry.Field{Name: "pv_power_w", Value: 3218.5},
		telemetry.Field{Name: "pv_day_energy_wh", Value: int64(8042)},
		telemetry.Field{Name: "self_consumption_percent", Value: 37.37},
	)
	require.NoError(t, err)
	return rec
}

func testDelivery(t *testing.T) Delivery {
	t.Helper()
	return Delivery{
		RunID:  "run-1",
		Tree:   map[string]interface{}{"Body": map[string]interface{}{}},
		Record: testRecord(t),
	}
}

func fixedClock() *clock.Fixed {
	return clock.NewFixed(march2024)
}
