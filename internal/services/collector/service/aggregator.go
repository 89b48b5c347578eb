package service

import (
	"context"
	"errors"

	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/logger"
	"srcfingerprint/internal/platform/metrics"
	"srcfingerprint/internal/services/collector/domain"
)

var errEmptySHA = errors.New("fingerprinter returned an empty sha")

// Tally counts unit outcomes seen by the aggregator
type Tally struct {
	Fingerprinted int
	Failed        int
	TimedOut      int
	Canceled      int
}

// Dispatched is the number of units that produced a result
func (t Tally) Dispatched() int { return t.Fingerprinted + t.Failed }

// Aggregator is the only owner of the record writers.
// Records reach every writer in arrival order, failures are only counted
type Aggregator struct {
	Writers []domain.RecordWriter
}

// Run consumes in until it is closed, then closes every writer.
// A write error stops consumption and is returned after the writers are closed
func (a *Aggregator) Run(ctx context.Context, in <-chan domain.UnitResult) (Tally, error) {
	var t Tally
	var werr error

	for r := range in {
		if r.Failure != nil {
			t.Failed++
			switch r.Failure.Cause {
			case domain.CauseTimeout:
				t.TimedOut++
			case domain.CauseCanceled:
				t.Canceled++
			}
			continue
		}
		if r.Record == nil {
			continue
		}
		if werr = a.write(ctx, *r.Record); werr != nil {
			break
		}
		t.Fingerprinted++
	}

	if cerr := a.close(ctx); cerr != nil {
		werr = errors.Join(werr, cerr)
	}
	return t, werr
}

func (a *Aggregator) write(ctx context.Context, rec domain.Record) error {
	for _, w := range a.Writers {
		if err := w.Write(ctx, rec); err != nil {
			metrics.SinkWrites.WithLabelValues(w.Name(), "error").Inc()
			return perr.WithOp(perr.Wrapf(err, codeOr(err, perr.ErrorCodeUnavailable), "write %s to %s", rec.RepositoryName, w.Name()), "aggregator.write")
		}
		metrics.SinkWrites.WithLabelValues(w.Name(), "ok").Inc()
	}
	return nil
}

func (a *Aggregator) close(ctx context.Context) error {
	var errs []error
	for _, w := range a.Writers {
		if err := w.Close(ctx); err != nil {
			logger.C(ctx).Error().Err(err).Str("sink", w.Name()).Msg("closing sink failed")
			errs = append(errs, perr.Wrapf(err, codeOr(err, perr.ErrorCodeUnavailable), "close %s", w.Name()))
		}
	}
	return errors.Join(errs...)
}

// codeOr keeps the code of an already classified error
func codeOr(err error, def perr.ErrorCode) perr.ErrorCode {
	if c := perr.CodeOf(err); c != perr.ErrorCodeUnknown {
		return c
	}
	return def
}
