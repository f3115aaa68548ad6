package health

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerRegistryAllHealthy(t *testing.T) {
	r := NewCheckerRegistry()
	r.Register(NewCheck("inverter", func(ctx context.Context) error { return nil }))
	r.Register(NewCheck("mysql", func(ctx context.Context) error { return nil }))

	h := r.Check(context.Background())
	assert.Equal(t, StatusHealthy, h.Status)
	require.Len(t, h.Checks, 2)
	assert.Equal(t, "inverter", h.Checks[0].Name)
	assert.Equal(t, "mysql", h.Checks[1].Name)
}

func TestCheckerRegistryReportsFailures(t *testing.T) {
	r := NewCheckerRegistry()
	r.Register(NewCheck("mysql", func(ctx context.Context) error { return fmt.Errorf("access denied") }))
	r.Register(NewCheck("redis", func(ctx context.Context) error { return nil }))

	h := r.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Equal(t, StatusUnhealthy, h.Checks[0].Status)
	assert.Equal(t, "access denied", h.Checks[0].Message)
	assert.Equal(t, StatusHealthy, h.Checks[1].Status)
}

func TestCheckerRegistryAppliesTimeout(t *testing.T) {
	r := NewCheckerRegistry()
	r.timeout = 20 * time.Millisecond
	r.Register(NewCheck("influxdb", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	h := r.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Contains(t, h.Checks[0].Message, "deadline exceeded")
}

func TestEmptyRegistryIsHealthy(t *testing.T) {
	assert.Equal(t, StatusHealthy, NewCheckerRegistry().Check(context.Background()).Status)
}
