package main

import (
	"context"
	"fmt"
	"io"

	"sunpoll/internal/config"
	"sunpoll/internal/fetcher"
	"sunpoll/internal/logger"
	"sunpoll/internal/sink"
	"sunpoll/pkg/bootstrap"
	"sunpoll/pkg/health"
)

// probe checks that the inverter and every enabled backend are reachable,
// without writing anything.
func probe(ctx context.Context, cfg *config.Config, log logger.Logger, out io.Writer) error {
	base := bootstrap.NewBase(cfg, log)

	sinks, err := sink.NewSinks(cfg, sink.Dependencies{
		Logger:    log,
		Connector: base.Connector,
	})
	if err != nil {
		return err
	}

	registry := health.NewCheckerRegistry()

	f := fetcher.NewHTTPFetcher(cfg.General.Timeout)
	registry.Register(health.NewCheck("inverter", func(ctx context.Context) error {
		_, err := f.Fetch(ctx, cfg.General.URL)
		return err
	}))

	for _, s := range sinks {
		if p, ok := s.(sink.Prober); ok {
			registry.Register(health.NewCheck(s.Name(), p.Probe))
		}
	}

	h := registry.Check(ctx)
	for _, c := range h.Checks {
		if c.Message != "" {
			fmt.Fprintf(out, "probe %s: %s (%s)\n", c.Name, c.Status, c.Message)
			continue
		}
		fmt.Fprintf(out, "probe %s: %s\n", c.Name, c.Status)
	}

	if h.Status != health.StatusHealthy {
		return fmt.Errorf("one or more probes failed")
	}
	return nil
}
