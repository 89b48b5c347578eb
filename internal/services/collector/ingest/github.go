// Package ingest adapts hosting provider clients to the collector Provider port
package ingest

import (
	"context"
	"iter"
	"strings"

	gh "srcfingerprint/internal/adapters/ingest/github"
	"srcfingerprint/internal/core/filter"
	"srcfingerprint/internal/services/collector/domain"
)

// GitHubLister is the slice of the GitHub client used here
type GitHubLister interface {
	Repos(ctx context.Context, opts gh.ListOptions) iter.Seq2[gh.Repo, error]
}

// GitHub lists repositories of a user or org, or everything the token can see
type GitHub struct {
	c       GitHubLister
	filters filter.Set
}

// NewGitHub builds the GitHub provider. filters only narrow the server query, the engine
// still applies the full policy
func NewGitHub(c GitHubLister, filters filter.Set) *GitHub {
	return &GitHub{c: c, filters: filters}
}

// Kind implements domain.Provider
func (p *GitHub) Kind() domain.ProviderKind { return domain.ProviderGitHub }

// List implements domain.Provider
func (p *GitHub) List(ctx context.Context, scope string) iter.Seq2[domain.Descriptor, error] {
	opts := gh.ListOptions{Owner: strings.TrimSpace(scope), PrivateOnly: !p.filters.IncludePublic}
	return func(yield func(domain.Descriptor, error) bool) {
		for r, err := range p.c.Repos(ctx, opts) {
			if err != nil {
				yield(domain.Descriptor{}, err)
				return
			}
			if !yield(fromGitHub(r, opts.Owner), nil) {
				return
			}
		}
	}
}

func fromGitHub(r gh.Repo, scope string) domain.Descriptor {
	loc := r.CloneURL
	if loc == "" && r.HTMLURL != "" {
		loc = r.HTMLURL + ".git"
	}
	return domain.Descriptor{
		Provider: domain.ProviderGitHub,
		Scope:    scope,
		Name:     r.Name,
		Location: loc,
		Private:  r.Private,
		Fork:     r.Fork,
		Archived: r.Archived,
	}
}
