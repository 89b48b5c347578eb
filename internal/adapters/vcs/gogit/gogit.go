// Package gogit resolves repository HEAD commits with go-git, without a git binary
package gogit

import (
	"context"
	"errors"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/logger"
	pstrings "srcfingerprint/internal/platform/strings"
)

// Options configures the Cloner
type Options struct {
	// CloneDir is the parent of the per-clone working areas; empty uses os.TempDir
	CloneDir string
}

// Cloner reads HEAD of local repositories and of shallow clones of remote ones
type Cloner struct {
	dir string
	log logger.Logger
}

// New creates a Cloner
func New(o Options) *Cloner {
	return &Cloner{dir: o.CloneDir, log: *logger.Named("gogit")}
}

// AccessToken authenticates with a token in the password slot, as GitHub expects over https
func AccessToken(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

// Bearer authenticates with an Authorization: Bearer header, as Bitbucket Server expects
func Bearer(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.TokenAuth{Token: token}
}

// LocalHead returns the HEAD commit of the repository containing path
func (c *Cloner) LocalHead(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", perr.NotFoundf("no git repository at %s", path)
		}
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "open %s", path)
	}
	return head(repo)
}

// RemoteHead clones url shallowly into a fresh working area, reads HEAD and removes the area
func (c *Cloner) RemoteHead(ctx context.Context, url string, auth transport.AuthMethod) (string, error) {
	dir, err := os.MkdirTemp(c.dir, "srcfp-*")
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "create working area")
	}
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			c.log.Warn().Err(rerr).Str("dir", dir).Msg("removing working area failed")
		}
	}()

	repo, err := git.PlainCloneContext(ctx, dir, true, &git.CloneOptions{
		URL:          url,
		Auth:         auth,
		Depth:        1,
		SingleBranch: true,
		NoCheckout:   true,
		Tags:         git.NoTags,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classify(err, url)
	}
	return head(repo)
}

func head(repo *git.Repository) (string, error) {
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", perr.NotFoundf("repository has no commits")
		}
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "resolve HEAD")
	}
	return ref.Hash().String(), nil
}

func classify(err error, url string) error {
	url = pstrings.StripUserinfo(url)
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return perr.Wrapf(err, perr.ErrorCodeUnauthorized, "clone %s", url)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return perr.Wrapf(err, perr.ErrorCodeNotFound, "clone %s", url)
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return perr.Wrapf(err, perr.ErrorCodeNotFound, "clone %s: repository has no commits", url)
	default:
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "clone %s", url)
	}
}
