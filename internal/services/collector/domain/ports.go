package domain

import (
	"context"
	"iter"

	"srcfingerprint/internal/core/filter"
)

// Provider lists candidate repositories for a scope.
// The sequence is lazy and single use; a yielded error ends it and means the listing is incomplete
type Provider interface {
	Kind() ProviderKind
	List(ctx context.Context, scope string) iter.Seq2[Descriptor, error]
}

// Fingerprinter resolves the content fingerprint (HEAD commit sha) of one repository.
// Implementations must return once ctx is done
type Fingerprinter interface {
	Fingerprint(ctx context.Context, d Descriptor) (string, error)
}

// RecordWriter is an output sink. Only the aggregator calls it, from a single goroutine
type RecordWriter interface {
	Name() string
	Write(ctx context.Context, r Record) error
	Close(ctx context.Context) error
}

// Request scopes one collection run
type Request struct {
	Scope   string
	Filters filter.Set

	// Limit caps candidates pulled from the provider, 0 means no cap
	Limit int
}

// RunnerPort is the public port exposed by the collector module
type RunnerPort interface {
	Run(ctx context.Context, req Request) (Summary, error)
}
