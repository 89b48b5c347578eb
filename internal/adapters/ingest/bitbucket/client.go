// Package bitbucket provides a Bitbucket Server REST 1.0 client for repository listing
package bitbucket

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/logger"
	"srcfingerprint/internal/platform/metrics"
)

const (
	apiPath          = "/rest/api/1.0"
	defaultTimeout   = 30 * time.Second
	defaultUA        = "src-fingerprint"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
)

// Options configures the Client
type Options struct {
	// BaseURL is the server root or its /rest/api/1.0 endpoint, required
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration

	MaxRetries int
	RetryBase  time.Duration
}

// Client is a minimal Bitbucket Server client with bearer auth and retries
type Client struct {
	http  *http.Client
	base  string
	opts  Options
	log   logger.Logger
	sleep func(context.Context, time.Duration) error
}

// NewClient validates the base URL and creates a Client
func NewClient(o Options) (*Client, error) {
	base, err := apiBase(o.BaseURL)
	if err != nil {
		return nil, err
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}

	hc := &http.Client{Timeout: o.Timeout}
	if o.Token != "" {
		hc = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.Token}))
		hc.Timeout = o.Timeout
	}
	return &Client{
		http:  hc,
		base:  base,
		opts:  o,
		log:   *logger.Named("bitbucket"),
		sleep: sleepCtx,
	}, nil
}

// apiBase normalizes a server URL to its REST 1.0 root
func apiBase(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", perr.InvalidArgf("bitbucket requires an API URL of form https://bitbucket.example.com/rest/api/1.0")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", perr.InvalidArgf("bitbucket base URL %q is not a valid http(s) url", raw)
	}
	p := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(p, apiPath) {
		p += apiPath
	}
	u.Path = p
	u.RawQuery = ""
	return u.String(), nil
}

// Do issues a GET against path (relative to the REST root) with retries on 429 and 5xx
func (c *Client) Do(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "bitbucket new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			metrics.ProviderRequests.WithLabelValues("bitbucket", metrics.StatusClass(0)).Inc()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempts >= c.opts.MaxRetries {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "bitbucket do failed")
			}
			if err := c.retry(ctx, attempts, "bitbucket transport error retrying"); err != nil {
				return nil, err
			}
			attempts++
			continue
		}
		metrics.ProviderRequests.WithLabelValues("bitbucket", metrics.StatusClass(resp.StatusCode)).Inc()
		c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Int("attempt", attempts).Msg("bitbucket http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusUnauthorized:
			_ = drainAndClose(resp.Body)
			return nil, perr.Unauthorizedf("bitbucket rejected the credentials (401)")
		case resp.StatusCode == http.StatusForbidden:
			_ = drainAndClose(resp.Body)
			return nil, perr.Forbiddenf("bitbucket forbidden: %s", path)
		case resp.StatusCode == http.StatusNotFound:
			_ = drainAndClose(resp.Body)
			return nil, perr.NotFoundf("bitbucket resource not found: %s", path)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			_ = drainAndClose(resp.Body)
			if attempts >= c.opts.MaxRetries {
				code := perr.ErrorCodeUnavailable
				if resp.StatusCode == http.StatusTooManyRequests {
					code = perr.ErrorCodeTooManyRequests
				}
				return nil, perr.Newf(code, "bitbucket status %d after %d attempts", resp.StatusCode, attempts+1)
			}
			if err := c.retry(ctx, attempts, "bitbucket transient error retrying"); err != nil {
				return nil, err
			}
			attempts++
			continue
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "bitbucket unexpected status %d body %s", resp.StatusCode, string(body))
		}
	}
}

func (c *Client) retry(ctx context.Context, attempt int, msg string) error {
	back := min(c.opts.RetryBase<<uint(attempt), 30*time.Second)
	c.log.Warn().Dur("retry_in", back).Int("attempt", attempt).Msg(msg)
	return c.sleep(ctx, back)
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
