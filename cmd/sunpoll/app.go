package main

import (
	"context"
	"fmt"

	"sunpoll/internal/config"
	"sunpoll/internal/constants"
	"sunpoll/internal/fetcher"
	"sunpoll/internal/logger"
	"sunpoll/internal/pipeline"
	"sunpoll/internal/sink"
	"sunpoll/internal/telemetry"
	"sunpoll/pkg/bootstrap"
	"sunpoll/pkg/clock"
	"sunpoll/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	clock      clock.Clock
	consoleLog logger.Logger
	pipeline   *pipeline.Pipeline
	metrics    *metrics.RunMetrics
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:  bootstrap.NewBase(cfg, log),
		clock: clock.New(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	schema, err := telemetry.LookupSchema(a.Config.General.Schema)
	if err != nil {
		return err
	}

	extractor, err := telemetry.NewExtractor(schema)
	if err != nil {
		return fmt.Errorf("failed to build extractor: %w", err)
	}

	if a.Config.Stdout != nil {
		consoleLog, err := logger.NewWithOutput(a.Config.Logging.Level, a.Config.Logging.Format, "stdout")
		if err != nil {
			return fmt.Errorf("failed to initialize console logger: %w", err)
		}
		a.consoleLog = consoleLog
	}

	sinks, err := sink.NewSinks(a.Config, sink.Dependencies{
		Logger:    a.Logger,
		Console:   a.consoleLog,
		Connector: a.Connector,
		Clock:     a.clock,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sinks: %w", err)
	}

	if a.Config.Metrics != nil {
		a.metrics = metrics.NewRunMetrics()
	}

	a.pipeline = pipeline.New(
		a.Config.General.URL,
		fetcher.NewHTTPFetcher(a.Config.General.Timeout),
		extractor,
		sinks,
		a.Logger,
		pipeline.WithClock(a.clock),
	)

	a.Logger.DebugwCtx(ctx, "Application initialized",
		"schema", schema.Name,
		"sinks", a.Config.EnabledSinks(),
	)
	return nil
}

// Run performs one poll. The returned error is the run's failure, if any;
// a failed metrics push is only logged.
func (a *App) Run(ctx context.Context) error {
	res := a.pipeline.Run(ctx)

	if a.metrics != nil {
		a.pushMetrics(ctx, res)
	}

	if res.Failed() {
		return res.Err
	}
	return nil
}

func (a *App) pushMetrics(ctx context.Context, res *pipeline.Result) {
	a.metrics.ObserveRun(!res.Failed(), res.Duration, a.clock.Now())
	for _, o := range res.Outcomes {
		a.metrics.SetSinkSuccess(o.Sink, o.OK())
	}
	if res.Record != nil {
		for _, f := range res.Record.Fields() {
			a.metrics.SetTelemetryValue(f.Name, f.Value)
		}
	}

	pushCtx, cancel := context.WithTimeout(ctx, constants.PushTimeout)
	defer cancel()

	if err := a.metrics.Push(pushCtx, a.Config.Metrics.Pushgateway, a.Config.Metrics.Job, constants.PushTimeout); err != nil {
		a.Logger.WarnwCtx(ctx, "Failed to push metrics", "error", err)
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		if a.consoleLog == nil {
			return nil
		}
		// Sync on a terminal stdout can fail harmlessly.
		_ = a.consoleLog.Sync()
		return nil
	})
}
