package service

import (
	"context"
	"sync"
	"time"

	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/logger"
	"srcfingerprint/internal/platform/metrics"
	"srcfingerprint/internal/services/collector/domain"
	"srcfingerprint/internal/services/collector/guardrails"
)

// Scheduler fingerprints descriptors with a fixed pool of workers sharing one queue
type Scheduler struct {
	FP       domain.Fingerprinter
	Workers  int
	Timeouts guardrails.Timeouts
	RunID    string
	Now      func() time.Time
}

// Run starts the pool and returns once every worker has exited.
// Workers stop on ctx done or when in is closed. emit is called from worker goroutines,
// once per dispatched descriptor, and must be safe for concurrent use
func (s *Scheduler) Run(ctx context.Context, in <-chan domain.Descriptor, emit func(domain.UnitResult)) {
	w := max(s.Workers, 1)
	var wg sync.WaitGroup
	sem := make(chan struct{}, w)

	worker := func() {
		defer func() { <-sem; wg.Done() }()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-in:
				if !ok {
					return
				}
				// a descriptor received after the run ended is not dispatched
				if ctx.Err() != nil {
					return
				}
				emit(s.unit(ctx, d))
			}
		}
	}

	for range w {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go worker()
	}
	wg.Wait()
}

type fpResult struct {
	sha string
	err error
}

// unit fingerprints one descriptor under its own deadline.
// The fingerprinter runs in its own goroutine so an expired unit releases the worker at once;
// a late result lands in the buffered channel and is dropped
func (s *Scheduler) unit(ctx context.Context, d domain.Descriptor) domain.UnitResult {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	log := logger.C(ctx)
	kind := string(d.Provider)
	start := now()

	metrics.UnitsInflight.Inc()
	defer metrics.UnitsInflight.Dec()

	uctx, cancel := guardrails.ForUnit(ctx, s.Timeouts)
	defer cancel()

	done := make(chan fpResult, 1)
	go func() {
		sha, err := s.FP.Fingerprint(uctx, d)
		done <- fpResult{sha: sha, err: err}
	}()

	var res fpResult
	select {
	case res = <-done:
	case <-uctx.Done():
		res = fpResult{err: uctx.Err()}
	}

	elapsed := now().Sub(start)
	metrics.UnitDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	out := domain.UnitResult{Descriptor: d, Elapsed: elapsed}

	if res.err == nil && res.sha != "" {
		rec := domain.NewRecord(d, res.sha, s.RunID, now())
		out.Record = &rec
		metrics.UnitsTotal.WithLabelValues(kind, "ok").Inc()
		log.Debug().Str("repository", d.Name).Str("sha", res.sha).Dur("elapsed", elapsed).Msg("repository fingerprinted")
		return out
	}

	f := &domain.Failure{Name: d.Name, Cause: domain.CauseFetch, Err: res.err}
	switch {
	case guardrails.Expired(uctx):
		f.Cause = domain.CauseTimeout
		f.Err = perr.Timeoutf("fingerprinting %s exceeded its deadline after %s", d.Name, elapsed.Round(time.Millisecond))
		if ctx.Err() == nil {
			log.Warn().Str("repository", d.Name).Dur("elapsed", elapsed).Msg("timeout reached while fingerprinting the repository")
		} else {
			log.Debug().Str("repository", d.Name).Msg("run deadline interrupted the repository")
		}
	case uctx.Err() != nil:
		f.Cause = domain.CauseCanceled
		log.Debug().Str("repository", d.Name).Msg("fingerprinting canceled")
	default:
		if f.Err == nil {
			f.Err = errEmptySHA
		}
		log.Error().Err(f.Err).Str("repository", d.Name).Str("location", d.Location).Msg("fingerprinting failed")
	}
	metrics.UnitsTotal.WithLabelValues(kind, string(f.Cause)).Inc()
	out.Failure = f
	return out
}
