// Package domain holds the data model and ports of the collector
package domain

import (
	"fmt"
	"strings"
	"time"

	"srcfingerprint/internal/core/filter"
	perr "srcfingerprint/internal/platform/errors"
)

// ProviderKind names a hosting backend
type ProviderKind string

// Supported provider kinds
const (
	ProviderGitHub     ProviderKind = "github"
	ProviderBitbucket  ProviderKind = "bitbucket"
	ProviderRepository ProviderKind = "repository"
)

// ProviderKinds lists the accepted --provider values
var ProviderKinds = []ProviderKind{ProviderGitHub, ProviderBitbucket, ProviderRepository}

// ParseProviderKind maps a flag value to a ProviderKind
func ParseProviderKind(s string) (ProviderKind, error) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range ProviderKinds {
		if k == p {
			return k, nil
		}
	}
	return "", perr.InvalidArgf("invalid provider %q: want one of github, bitbucket, repository", s)
}

// Descriptor identifies one unit of work. Providers build it and nobody mutates it after,
// it is passed by value everywhere
type Descriptor struct {
	Provider ProviderKind
	Scope    string
	Name     string
	Location string

	// Remote is the fetch address when it differs from Location, e.g. a URL with
	// credentials. It is never written to records or logs
	Remote string

	Private  bool
	Fork     bool
	Archived bool

	// Explicit is set when the operator named the location directly
	Explicit bool
}

// FetchLocation is the address fingerprinters connect to
func (d Descriptor) FetchLocation() string {
	if d.Remote != "" {
		return d.Remote
	}
	return d.Location
}

// Flags returns the attributes the filter policy looks at
func (d Descriptor) Flags() filter.Flags {
	return filter.Flags{Private: d.Private, Fork: d.Fork, Archived: d.Archived, Explicit: d.Explicit}
}

// Cause classifies a failed unit
type Cause string

// Failure causes
const (
	CauseTimeout  Cause = "timeout"
	CauseFetch    Cause = "fetch-error"
	CauseCanceled Cause = "canceled"
)

// Failure is the result of a unit that produced no fingerprint
type Failure struct {
	Name  string
	Cause Cause
	Err   error
}

// Error implements error
func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Name, f.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", f.Name, f.Cause, f.Err)
}

// Unwrap exposes the underlying error
func (f *Failure) Unwrap() error { return f.Err }

// Record is one output line, written once per fingerprinted repository
type Record struct {
	RepositoryName  string       `json:"repository_name"`
	SHA             string       `json:"sha"`
	Provider        ProviderKind `json:"provider"`
	Scope           string       `json:"scope,omitempty"`
	Location        string       `json:"location"`
	Private         bool         `json:"private"`
	Fork            bool         `json:"fork"`
	Archived        bool         `json:"archived"`
	RunID           string       `json:"run_id"`
	FingerprintedAt time.Time    `json:"fingerprinted_at"`
}

// NewRecord builds the output record for a fingerprinted descriptor
func NewRecord(d Descriptor, sha, runID string, at time.Time) Record {
	return Record{
		RepositoryName:  d.Name,
		SHA:             sha,
		Provider:        d.Provider,
		Scope:           d.Scope,
		Location:        d.Location,
		Private:         d.Private,
		Fork:            d.Fork,
		Archived:        d.Archived,
		RunID:           runID,
		FingerprintedAt: at.UTC(),
	}
}

// UnitResult is produced exactly once per dispatched descriptor.
// Exactly one of Record and Failure is set
type UnitResult struct {
	Descriptor Descriptor
	Record     *Record
	Failure    *Failure
	Elapsed    time.Duration
}

// OK reports whether the unit produced a record
func (r UnitResult) OK() bool { return r.Record != nil }

// Summary describes a finished run
type Summary struct {
	RunID           string
	Collected       int
	Filtered        int
	Dispatched      int
	Fingerprinted   int
	Failed          int
	TimedOut        int
	LimitReached    bool
	DeadlineReached bool
	Elapsed         time.Duration
}

// String renders the run summary line
func (s Summary) String() string {
	return fmt.Sprintf("Collected %d repos, %d fingerprinted, %d filtered out, %d failed (%d timeout reached)",
		s.Collected, s.Fingerprinted, s.Filtered, s.Failed, s.TimedOut)
}
