package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithRunID(ctx, "run-1")
	ctx = WithSink(ctx, "mysql")
	ctx = WithPhase(ctx, "fanning_out")

	assert.Equal(t, []interface{}{"run_id", "run-1", "phase", "fanning_out", "sink", "mysql"}, GetLogFields(ctx))
}

func TestGetLogFieldsLaterValueWins(t *testing.T) {
	ctx := WithPhase(context.Background(), "fetching")
	ctx = WithSchema(ctx, "site")
	ctx = WithPhase(ctx, "parsing")

	assert.Equal(t, []interface{}{"schema", "site", "phase", "parsing"}, GetLogFields(ctx))
}
