package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	perr "srcfingerprint/internal/platform/errors"
)

func newTestClient(t *testing.T, h http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, Token: token, MaxRetries: 2, RetryBase: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestAPIBase(t *testing.T) {
	cases := []struct {
		in, want string
		bad      bool
	}{
		{in: "https://bb.example.com", want: "https://bb.example.com/rest/api/1.0"},
		{in: "https://bb.example.com/", want: "https://bb.example.com/rest/api/1.0"},
		{in: "https://bb.example.com/rest/api/1.0/", want: "https://bb.example.com/rest/api/1.0"},
		{in: "http://localhost:7990/bitbucket", want: "http://localhost:7990/bitbucket/rest/api/1.0"},
		{in: "", bad: true},
		{in: "bb.example.com", bad: true},
		{in: "ftp://bb.example.com", bad: true},
	}
	for _, tc := range cases {
		got, err := apiBase(tc.in)
		if tc.bad {
			if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
				t.Fatalf("apiBase(%q) err=%v want InvalidArgument", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("apiBase(%q)=%q,%v want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestRepos_PagesUntilLastPage(t *testing.T) {
	var auth atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/1.0/repos" {
			t.Errorf("path=%q", r.URL.Path)
		}
		auth.Store(r.Header.Get("Authorization"))
		if r.URL.Query().Get("projectname") != "Team Space" {
			t.Errorf("projectname=%q", r.URL.Query().Get("projectname"))
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		switch start {
		case 0:
			_, _ = fmt.Fprint(w, `{"isLastPage":false,"nextPageStart":2,"values":[{"name":"a"},{"name":"b"}]}`)
		case 2:
			_, _ = fmt.Fprint(w, `{"isLastPage":true,"values":[{"name":"c"}]}`)
		default:
			t.Errorf("unexpected start %d", start)
		}
	}), "secret")

	var got []string
	for r, err := range c.Repos(context.Background(), "Team Space") {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, r.Name)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	if auth.Load() != "Bearer secret" {
		t.Fatalf("Authorization=%v", auth.Load())
	}
}

func TestRepos_ErrorEndsSequence(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), "bad")
	n := 0
	var last error
	for _, err := range c.Repos(context.Background(), "") {
		n++
		last = err
	}
	if n != 1 || !perr.IsCode(last, perr.ErrorCodeUnauthorized) {
		t.Fatalf("n=%d err=%v", n, last)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), "")
	_, err := c.Do(context.Background(), "/repos", nil)
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err=%v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits=%d want 3", hits.Load())
	}
}

func TestRepo_Attributes(t *testing.T) {
	cases := []struct {
		name          string
		repo          Repo
		private, fork bool
		clone         string
	}{
		{"private", Repo{Links: Links{Clone: []Link{{Name: "ssh", Href: "ssh://git@bb/p/r.git"}, {Name: "http", Href: "https://bb/scm/p/r.git"}}}}, true, false, "https://bb/scm/p/r.git"},
		{"public repo", Repo{Public: true}, false, false, ""},
		{"public project", Repo{Project: Project{Public: true}}, false, false, ""},
		{"fork", Repo{Origin: &Repo{Name: "up"}, Links: Links{Clone: []Link{{Name: "ssh", Href: "ssh://git@bb/p/r.git"}}}}, true, true, "ssh://git@bb/p/r.git"},
	}
	for _, tc := range cases {
		if tc.repo.Private() != tc.private || tc.repo.Fork() != tc.fork || tc.repo.CloneURL() != tc.clone {
			t.Fatalf("%s: private=%v fork=%v clone=%q", tc.name, tc.repo.Private(), tc.repo.Fork(), tc.repo.CloneURL())
		}
	}
}
