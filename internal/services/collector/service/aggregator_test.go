package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"srcfingerprint/internal/services/collector/domain"
)

func TestAggregator_FansRecordsAndCountsFailures(t *testing.T) {
	w1, w2 := &memWriter{}, &memWriter{}
	agg := &Aggregator{Writers: []domain.RecordWriter{w1, w2}}

	in := make(chan domain.UnitResult, 4)
	rec := domain.NewRecord(domain.Descriptor{Name: "a", Location: "l/a"}, "abc", "run", time.Unix(0, 0))
	in <- domain.UnitResult{Record: &rec}
	in <- domain.UnitResult{Failure: &domain.Failure{Name: "b", Cause: domain.CauseTimeout}}
	in <- domain.UnitResult{Failure: &domain.Failure{Name: "c", Cause: domain.CauseFetch, Err: errors.New("x")}}
	in <- domain.UnitResult{Failure: &domain.Failure{Name: "d", Cause: domain.CauseCanceled}}
	close(in)

	tally, err := agg.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	want := Tally{Fingerprinted: 1, Failed: 3, TimedOut: 1, Canceled: 1}
	if diff := cmp.Diff(want, tally); diff != "" {
		t.Fatalf("tally (-want +got):\n%s", diff)
	}
	if tally.Dispatched() != 4 {
		t.Fatalf("dispatched=%d", tally.Dispatched())
	}
	for _, w := range []*memWriter{w1, w2} {
		if diff := cmp.Diff([]domain.Record{rec}, w.recs); diff != "" {
			t.Fatalf("records (-want +got):\n%s", diff)
		}
		if !w.closed {
			t.Fatal("writer not closed")
		}
	}
}

func TestFailure_ErrorString(t *testing.T) {
	f := &domain.Failure{Name: "repo", Cause: domain.CauseFetch, Err: errors.New("boom")}
	if got := f.Error(); got != "repo: fetch-error: boom" {
		t.Fatalf("Error()=%q", got)
	}
	if !errors.Is(f, f.Err) {
		t.Fatal("Failure should unwrap to its cause")
	}
}
