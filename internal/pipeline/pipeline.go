// Package pipeline runs one poll: fetch, parse, extract, validate, then fan
// the record out to every configured sink.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"sunpoll/internal/fetcher"
	"sunpoll/internal/logger"
	"sunpoll/internal/sink"
	"sunpoll/internal/telemetry"
	"sunpoll/pkg/clock"
	apperrors "sunpoll/pkg/errors"
	"sunpoll/pkg/logging"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseParsing    Phase = "parsing"
	PhaseExtracting Phase = "extracting"
	PhaseValidating Phase = "validating"
	PhaseFanningOut Phase = "fanning_out"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Result describes a finished run. Phase is Done or Failed; FailedPhase names
// the phase that failed and is empty on success.
type Result struct {
	RunID       string
	Phase       Phase
	FailedPhase Phase
	Err         error
	Record      *telemetry.Record
	Outcomes    []sink.Outcome
	Duration    time.Duration
}

func (r *Result) Failed() bool {
	return r.Phase == PhaseFailed
}

// SinksFailed returns the names of the sinks whose delivery failed.
func (r *Result) SinksFailed() []string {
	var names []string
	for _, o := range r.Outcomes {
		if !o.OK() {
			names = append(names, o.Sink)
		}
	}
	return names
}

type Option func(*Pipeline)

func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

func WithRunIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		p.newRunID = gen
	}
}

type Pipeline struct {
	url       string
	fetcher   fetcher.Fetcher
	extractor *telemetry.Extractor
	sinks     []sink.Sink
	logger    logger.Logger
	clock     clock.Clock
	newRunID  func() string
}

func New(url string, f fetcher.Fetcher, extractor *telemetry.Extractor, sinks []sink.Sink, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		url:       url,
		fetcher:   f,
		extractor: extractor,
		sinks:     sinks,
		logger:    log,
		clock:     clock.New(),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one pass. It never panics on a phase failure and always
// returns a Result; the error is also available as Result.Err.
func (p *Pipeline) Run(ctx context.Context) *Result {
	start := p.clock.Now()
	res := &Result{
		RunID: p.newRunID(),
		Phase: PhaseIdle,
	}
	defer func() {
		res.Duration = p.clock.Now().Sub(start)
	}()

	ctx = logging.WithRunID(ctx, res.RunID)
	ctx = logging.WithSchema(ctx, p.extractor.Schema().Name)

	p.enter(ctx, res, PhaseFetching)
	body, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		return p.fail(ctx, res, err)
	}

	p.enter(ctx, res, PhaseParsing)
	tree, err := telemetry.Parse(body)
	if err != nil {
		return p.fail(ctx, res, err)
	}

	p.enter(ctx, res, PhaseExtracting)
	record, err := p.extractor.Extract(tree)
	if err != nil {
		return p.fail(ctx, res, err)
	}

	p.enter(ctx, res, PhaseValidating)
	if err := telemetry.Validate(record); err != nil {
		return p.fail(ctx, res, err)
	}
	res.Record = record

	p.enter(ctx, res, PhaseFanningOut)
	delivery := sink.Delivery{
		RunID:  res.RunID,
		Tree:   tree,
		Record: record,
	}

	var sinkErrs []error
	for _, s := range p.sinks {
		sinkCtx := logging.WithSink(ctx, s.Name())
		err := persist(sinkCtx, s, delivery)
		res.Outcomes = append(res.Outcomes, sink.Outcome{Sink: s.Name(), Err: err})

		if err != nil {
			sinkErrs = append(sinkErrs, err)
			p.logger.ErrorwCtx(sinkCtx, "Sink failed", "error", err)
			continue
		}
		p.logger.InfowCtx(sinkCtx, "Sink succeeded")
	}

	if len(sinkErrs) > 0 {
		return p.fail(ctx, res, errors.Join(sinkErrs...))
	}

	p.enter(ctx, res, PhaseDone)
	p.logger.InfowCtx(ctx, "Run completed",
		"fields", record.Len(),
		"sinks", len(res.Outcomes),
	)
	return res
}

// persist runs one sink, converting a panic into a SINK_ERROR so the
// remaining sinks still run.
func persist(ctx context.Context, s sink.Sink, d sink.Delivery) error {
	err := apperrors.Guard(func() error {
		return s.Persist(ctx, d)
	})
	if errors.Is(err, apperrors.ErrInternal) {
		return apperrors.ErrSink.WithCause(err).
			WithMessage("%s sink panicked", s.Name()).
			WithDetail("sink", s.Name())
	}
	return err
}

func (p *Pipeline) enter(ctx context.Context, res *Result, phase Phase) {
	res.Phase = phase
	p.logger.DebugwCtx(logging.WithPhase(ctx, string(phase)), "Entering phase")
}

func (p *Pipeline) fail(ctx context.Context, res *Result, err error) *Result {
	res.FailedPhase = res.Phase
	res.Phase = PhaseFailed
	res.Err = err

	p.logger.ErrorwCtx(logging.WithPhase(ctx, string(res.FailedPhase)), "Run failed",
		"error", err,
		"code", apperrors.CodeOf(err),
	)
	return res
}
