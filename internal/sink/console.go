package sink

import (
	"context"

	"sunpoll/internal/constants"
	"sunpoll/internal/logger"
)

// Console echoes the raw document and the record through a logger. Its
// logger is normally bound to stdout, separate from the diagnostic log.
type Console struct {
	log logger.Logger
}

func NewConsole(log logger.Logger) *Console {
	return &Console{log: log}
}

func (c *Console) Name() string {
	return constants.SectionStdout
}

func (c *Console) Persist(ctx context.Context, d Delivery) error {
	c.log.InfowCtx(ctx, "Payload", "payload", d.Tree)

	kv := make([]interface{}, 0, 2*d.Record.Len())
	for _, f := range d.Record.Fields() {
		kv = append(kv, f.Name, f.Value)
	}
	c.log.InfowCtx(ctx, "Telemetry record", kv...)

	return nil
}
