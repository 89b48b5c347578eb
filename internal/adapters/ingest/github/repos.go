package github

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/url"

	perr "srcfingerprint/internal/platform/errors"
)

const perPage = "100"

// ListOptions narrows a repository listing
type ListOptions struct {
	// Owner is an org or user login; empty lists everything the token can see
	Owner string

	// PrivateOnly asks the server for private repositories only
	PrivateOnly bool
}

// Repos pages through the repositories of opts.Owner following Link rel="next".
// An org that does not exist falls back to the user of the same login.
// The first error ends the sequence
func (c *Client) Repos(ctx context.Context, opts ListOptions) iter.Seq2[Repo, error] {
	return func(yield func(Repo, error) bool) {
		next := firstPage(opts)
		fallback := opts.Owner != ""

		for next != "" {
			page, link, err := c.reposPage(ctx, next)
			if err != nil && fallback && perr.IsCode(err, perr.ErrorCodeNotFound) {
				c.log.Debug().Str("owner", opts.Owner).Msg("github org not found, listing user repositories")
				fallback = false
				next = userPage(opts)
				continue
			}
			if err != nil {
				yield(Repo{}, err)
				return
			}
			fallback = false
			for _, r := range page {
				if !yield(r, nil) {
					return
				}
			}
			next = link
		}
	}
}

func firstPage(opts ListOptions) string {
	q := url.Values{}
	q.Set("per_page", perPage)
	if opts.Owner == "" {
		q.Set("affiliation", "owner,collaborator,organization_member")
		if opts.PrivateOnly {
			q.Set("visibility", "private")
		}
		return "/user/repos?" + q.Encode()
	}
	q.Set("type", "all")
	if opts.PrivateOnly {
		q.Set("type", "private")
	}
	return "/orgs/" + url.PathEscape(opts.Owner) + "/repos?" + q.Encode()
}

func userPage(opts ListOptions) string {
	q := url.Values{}
	q.Set("per_page", perPage)
	q.Set("type", "owner")
	return "/users/" + url.PathEscape(opts.Owner) + "/repos?" + q.Encode()
}

func (c *Client) reposPage(ctx context.Context, path string) ([]Repo, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("github close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "github read %s", path)
	}
	var out []Repo
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, "", perr.Wrapf(err, perr.ErrorCodeJSON, "github decode %s", path)
	}
	return out, nextLink(resp.Header), nil
}
