package bitbucket

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/url"
	"strconv"

	perr "srcfingerprint/internal/platform/errors"
)

const pageLimit = 100

// Repos pages through /repos, optionally narrowed by project name, until isLastPage.
// The first error ends the sequence
func (c *Client) Repos(ctx context.Context, project string) iter.Seq2[Repo, error] {
	return func(yield func(Repo, error) bool) {
		start := 0
		for {
			page, err := c.reposPage(ctx, project, start)
			if err != nil {
				yield(Repo{}, err)
				return
			}
			for _, r := range page.Values {
				if !yield(r, nil) {
					return
				}
			}
			if page.IsLastPage || len(page.Values) == 0 || page.NextPageStart <= start {
				return
			}
			start = page.NextPageStart
		}
	}
}

func (c *Client) reposPage(ctx context.Context, project string, start int) (Page[Repo], error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(pageLimit))
	if project != "" {
		q.Set("projectname", project)
	}
	c.log.Debug().Int("start", start).Str("project", project).Msg("bitbucket gathering repos")

	resp, err := c.Do(ctx, "/repos", q)
	if err != nil {
		return Page[Repo]{}, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Msg("bitbucket close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Page[Repo]{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "bitbucket read repos page %d", start)
	}
	var out Page[Repo]
	if err := json.Unmarshal(b, &out); err != nil {
		return Page[Repo]{}, perr.Wrapf(err, perr.ErrorCodeJSON, "bitbucket decode repos page %d", start)
	}
	return out, nil
}
