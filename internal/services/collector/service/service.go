// Package service provides the collection engine: listing, filtering, the fingerprint pool and the sink
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"srcfingerprint/internal/core/filter"
	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/logger"
	"srcfingerprint/internal/platform/metrics"
	pstrings "srcfingerprint/internal/platform/strings"
	"srcfingerprint/internal/services/collector/domain"
	"srcfingerprint/internal/services/collector/guardrails"
)

// Config holds the engine options
type Config struct {
	// Workers is the pool size; <=0 -> 1
	Workers int

	// UnitTimeout caps one repository; 0 = unbounded
	UnitTimeout time.Duration

	// RunTimeout caps the whole run; 0 = unbounded
	RunTimeout time.Duration
}

// Service implements domain.RunnerPort
type Service struct {
	Provider domain.Provider
	FP       domain.Fingerprinter
	Writers  []domain.RecordWriter
	Cfg      Config

	// Now and NewID are seams for tests
	Now   func() time.Time
	NewID func() string
}

var _ domain.RunnerPort = (*Service)(nil)

// New constructs the engine
func New(p domain.Provider, fp domain.Fingerprinter, cfg Config, writers ...domain.RecordWriter) *Service {
	if p == nil {
		panic("collector.Service requires a non nil Provider")
	}
	if fp == nil {
		panic("collector.Service requires a non nil Fingerprinter")
	}
	return &Service{
		Provider: p,
		FP:       fp,
		Writers:  writers,
		Cfg:      cfg,
		Now:      time.Now,
		NewID:    func() string { return uuid.NewString() },
	}
}

// Run executes one collection run and returns its summary.
// Reaching the run deadline is not an error: the summary holds the partial results.
// Provider failures and sink failures abort the run
func (s *Service) Run(ctx context.Context, req domain.Request) (domain.Summary, error) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	runID := uuid.NewString()
	if s.NewID != nil {
		runID = s.NewID()
	}
	ctx = logger.WithRun(ctx, runID, string(s.Provider.Kind()))
	log := logger.C(ctx)
	start := now()

	tm := guardrails.Timeouts{Run: s.Cfg.RunTimeout, Unit: s.Cfg.UnitTimeout}
	runCtx, cancel := guardrails.WithRun(ctx, tm)
	defer cancel()

	w := max(s.Cfg.Workers, 1)
	queue := make(chan domain.Descriptor, w)
	results := make(chan domain.UnitResult, w)
	aggDone := make(chan struct{})

	sum := domain.Summary{RunID: runID}
	var tally Tally

	log.Info().
		Str("scope", pstrings.StripUserinfo(req.Scope)).
		Int("workers", w).
		Dur("unit_timeout", s.Cfg.UnitTimeout).
		Dur("run_timeout", s.Cfg.RunTimeout).
		Int("limit", req.Limit).
		Msg("collection started")

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer close(queue)
		return s.list(gctx, runCtx, req, queue, &sum)
	})

	g.Go(func() error {
		defer close(results)
		sched := &Scheduler{FP: s.FP, Workers: w, Timeouts: tm, RunID: runID, Now: now}
		sched.Run(gctx, queue, func(r domain.UnitResult) {
			select {
			case results <- r:
			case <-aggDone:
			}
		})
		return nil
	})

	g.Go(func() error {
		defer close(aggDone)
		agg := &Aggregator{Writers: s.Writers}
		t, err := agg.Run(context.WithoutCancel(ctx), results)
		tally = t
		return err
	})

	err := g.Wait()

	sum.Fingerprinted = tally.Fingerprinted
	sum.Failed = tally.Failed
	sum.TimedOut = tally.TimedOut
	sum.Dispatched = tally.Dispatched()
	sum.Elapsed = now().Sub(start)

	if err != nil {
		log.Error().Err(err).Msg("collection aborted")
		return sum, err
	}
	if ctx.Err() != nil {
		log.Warn().Msg("collection interrupted")
		return sum, perr.Wrap(ctx.Err(), perr.ErrorCodeUnknown, "collection interrupted")
	}
	if guardrails.Expired(runCtx) {
		sum.DeadlineReached = true
		log.Warn().Dur("run_timeout", s.Cfg.RunTimeout).Msg("timeout reached for the run")
	}

	log.Info().
		Int("collected", sum.Collected).
		Int("filtered", sum.Filtered).
		Int("fingerprinted", sum.Fingerprinted).
		Int("failed", sum.Failed).
		Int("timed_out", sum.TimedOut).
		Dur("elapsed", sum.Elapsed).
		Msg(sum.String())
	return sum, nil
}

// list drains the provider into queue, applying the limit and the filter policy.
// runCtx tells a run deadline apart from a provider failure
func (s *Service) list(ctx, runCtx context.Context, req domain.Request, queue chan<- domain.Descriptor, sum *domain.Summary) error {
	log := logger.C(ctx)
	kind := string(s.Provider.Kind())

	for d, err := range s.Provider.List(ctx, req.Scope) {
		if err != nil {
			if guardrails.Expired(runCtx) || ctx.Err() != nil {
				log.Debug().Err(err).Msg("listing stopped by the run context")
				return nil
			}
			return perr.WithOp(perr.Wrapf(err, codeOr(err, perr.ErrorCodeUnavailable), "list %s repositories", kind), "collector.list")
		}
		if req.Limit > 0 && sum.Collected >= req.Limit {
			sum.LimitReached = true
			log.Warn().Msg("Limit reached for number of repositories")
			log.Warn().Msgf("Collected %d repos, ignored more.", sum.Collected)
			break
		}
		sum.Collected++

		if !filter.Accept(d.Flags(), req.Filters) {
			sum.Filtered++
			metrics.CandidatesTotal.WithLabelValues(kind, "filtered").Inc()
			log.Debug().Str("repository", d.Name).Str("reason", filter.Reason(d.Flags(), req.Filters)).Msg("repository filtered out")
			continue
		}
		metrics.CandidatesTotal.WithLabelValues(kind, "accepted").Inc()

		select {
		case queue <- d:
		case <-ctx.Done():
			return nil
		}
	}
	log.Debug().Int("collected", sum.Collected).Msg("done gathering repositories")
	return nil
}
