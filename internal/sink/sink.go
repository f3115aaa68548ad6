// Package sink delivers a validated telemetry record to the configured
// backends. Each sink opens its own connection per delivery and releases it
// before returning, on success and failure alike.
package sink

import (
	"context"
	"errors"

	"sunpoll/internal/telemetry"
	apperrors "sunpoll/pkg/errors"
)

// Delivery is everything a sink may persist for one run.
type Delivery struct {
	RunID  string
	Tree   map[string]interface{}
	Record *telemetry.Record
}

type Sink interface {
	Name() string
	Persist(ctx context.Context, d Delivery) error
}

// Prober is implemented by sinks that can check their backend without
// writing to it.
type Prober interface {
	Probe(ctx context.Context) error
}

// Outcome is the result of one sink's Persist call.
type Outcome struct {
	Sink string
	Err  error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// sinkError classifies err as a SINK_ERROR naming the sink. Errors that are
// already sink errors keep their message and gain the sink detail.
func sinkError(name string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrSink.Code {
		return appErr.WithDetail("sink", name)
	}

	return apperrors.ErrSink.WithCause(err).
		WithMessage("%s sink failed", name).
		WithDetail("sink", name)
}
