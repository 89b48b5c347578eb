package ingest

import (
	"context"
	"iter"
	"strings"

	bb "srcfingerprint/internal/adapters/ingest/bitbucket"
	"srcfingerprint/internal/core/normalize"
	"srcfingerprint/internal/platform/logger"
	"srcfingerprint/internal/services/collector/domain"
)

// BitbucketLister is the slice of the Bitbucket client used here
type BitbucketLister interface {
	Repos(ctx context.Context, project string) iter.Seq2[bb.Repo, error]
}

// Bitbucket lists Bitbucket Server repositories, optionally within one project
type Bitbucket struct {
	c BitbucketLister
}

// NewBitbucket builds the Bitbucket Server provider
func NewBitbucket(c BitbucketLister) *Bitbucket { return &Bitbucket{c: c} }

// Kind implements domain.Provider
func (p *Bitbucket) Kind() domain.ProviderKind { return domain.ProviderBitbucket }

// List implements domain.Provider.
// The server matches projectname loosely, so each result is checked against the
// project name or key before it is yielded
func (p *Bitbucket) List(ctx context.Context, scope string) iter.Seq2[domain.Descriptor, error] {
	scope = strings.TrimSpace(scope)
	log := logger.C(ctx)
	return func(yield func(domain.Descriptor, error) bool) {
		for r, err := range p.c.Repos(ctx, scope) {
			if err != nil {
				yield(domain.Descriptor{}, err)
				return
			}
			if scope != "" && !normalize.EqualAny(scope, r.Project.Name, r.Project.Key) {
				log.Debug().Str("repository", r.Name).Str("project", r.Project.Name).Msg("bitbucket repository outside the project scope")
				continue
			}
			if !yield(fromBitbucket(r, scope), nil) {
				return
			}
		}
	}
}

func fromBitbucket(r bb.Repo, scope string) domain.Descriptor {
	name := r.Name
	if name == "" {
		name = r.Slug
	}
	return domain.Descriptor{
		Provider: domain.ProviderBitbucket,
		Scope:    scope,
		Name:     name,
		Location: r.CloneURL(),
		Private:  r.Private(),
		Fork:     r.Fork(),
		Archived: r.Archived,
	}
}
