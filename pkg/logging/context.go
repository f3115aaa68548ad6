package logging

import (
	"context"
)

const (
	RunIDKey  = "run_id"
	PhaseKey  = "phase"
	SinkKey   = "sink"
	SchemaKey = "schema"
)

type ctxKey string

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKey(RunIDKey), runID)
}

func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKey(PhaseKey), phase)
}

func WithSink(ctx context.Context, sink string) context.Context {
	return context.WithValue(ctx, ctxKey(SinkKey), sink)
}

func WithSchema(ctx context.Context, schema string) context.Context {
	return context.WithValue(ctx, ctxKey(SchemaKey), schema)
}

func getString(ctx context.Context, key string) string {
	if v, ok := ctx.Value(ctxKey(key)).(string); ok {
		return v
	}
	return ""
}

// GetLogFields returns the key/value pairs stored in ctx, in a stable order.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	for _, key := range []string{RunIDKey, SchemaKey, PhaseKey, SinkKey} {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
