package module

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"

	"srcfingerprint/internal/adapters/export"
	"srcfingerprint/internal/core/filter"
	"srcfingerprint/internal/modkit"
	"srcfingerprint/internal/platform/config"
	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/services/collector/domain"
	"srcfingerprint/internal/services/collector/ingest"
)

func initRepo(t *testing.T, name string) (dir, sha string) {
	t.Helper()
	dir = filepath.Join(t.TempDir(), name)
	r, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := r.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("README"); err != nil {
		t.Fatal(err)
	}
	h, err := wt.Commit("init", &git.CommitOptions{Author: &object.Signature{Name: "t", Email: "t@example.com", When: time.Unix(0, 0)}})
	if err != nil {
		t.Fatal(err)
	}
	return dir, h.String()
}

func deps() modkit.Deps {
	return modkit.Deps{Cfg: config.New()}
}

func TestNew_RepositoryProviderWritesJSONL(t *testing.T) {
	a, shaA := initRepo(t, "alpha")
	b, shaB := initRepo(t, "beta")
	out := filepath.Join(t.TempDir(), "out.jsonl")

	m, err := New(context.Background(), deps(), Options{
		Provider:  domain.ProviderRepository,
		Scope:     a,
		Locations: []string{b},
		Workers:   2,
		Output:    out,
		Format:    export.FormatJSONL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Name() != "collector" {
		t.Fatalf("Name=%q", m.Name())
	}
	if _, ok := m.Ports().(Ports); !ok {
		t.Fatalf("Ports type %T", m.Ports())
	}

	sum, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Fingerprinted != 2 || sum.Failed != 0 {
		t.Fatalf("summary %+v", sum)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r domain.Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		got[r.RepositoryName] = r.SHA
	}
	want := map[string]string{"alpha": shaA, "beta": shaB}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}
}

func TestNew_RequestCarriesScopeFiltersLimit(t *testing.T) {
	dir, _ := initRepo(t, "solo")
	fs := filter.Set{IncludeForked: true}
	m, err := New(context.Background(), deps(), Options{
		Provider: domain.ProviderRepository,
		Scope:    dir,
		Filters:  fs,
		Limit:    3,
		Output:   filepath.Join(t.TempDir(), "x.jsonl"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := domain.Request{Scope: dir, Filters: fs, Limit: 3}
	if diff := cmp.Diff(want, m.Request()); diff != "" {
		t.Fatalf("request (-want +got):\n%s", diff)
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		name  string
		opts  Options
		field string
	}{
		{"missing provider", Options{}, "provider"},
		{"unknown provider", Options{Provider: "gitlab"}, "provider"},
		{"bitbucket without url", Options{Provider: domain.ProviderBitbucket, Scope: "TM"}, "provider_url"},
		{"bad fingerprinter", Options{Provider: domain.ProviderRepository, Scope: tmp, Fingerprinter: "svn"}, "fingerprinter"},
		{"clone dir missing", Options{Provider: domain.ProviderRepository, Scope: tmp, CloneDir: filepath.Join(tmp, "nope")}, "clone_dir"},
		{"bad format", Options{Provider: domain.ProviderRepository, Scope: tmp, Format: "xml"}, "export_format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(context.Background(), deps(), tc.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
				t.Fatalf("code=%v err=%v", perr.CodeOf(err), err)
			}
			e, _ := perr.As(err)
			if e.Field() != tc.field {
				t.Fatalf("field=%q want %q", e.Field(), tc.field)
			}
		})
	}
}

func TestNew_GitCLIBackend(t *testing.T) {
	dir, _ := initRepo(t, "cli")
	m, err := New(context.Background(), deps(), Options{
		Provider:      domain.ProviderRepository,
		Scope:         dir,
		Fingerprinter: ingest.BackendGitCLI,
		Output:        filepath.Join(t.TempDir(), "x.jsonl"),
	})
	if err != nil || m == nil {
		t.Fatalf("New: %v", err)
	}
}

func TestFromConfig_EnvAndMerge(t *testing.T) {
	t.Setenv("SRCFP_COLLECTOR_WORKERS", "3")
	t.Setenv("SRCFP_COLLECTOR_TIMEOUT", "2s")
	t.Setenv("SRCFP_COLLECTOR_FINGERPRINTER", "gitcli")
	t.Setenv("SRCFP_GITHUB_URL", "https://ghe.example.com/api/v3")

	o := FromConfig(config.New())
	if o.Workers != 3 || o.UnitTimeout != 2*time.Second || o.Fingerprinter != ingest.BackendGitCLI {
		t.Fatalf("env options %+v", o)
	}
	if o.GitHub.BaseURL != "https://ghe.example.com/api/v3" {
		t.Fatalf("github url %q", o.GitHub.BaseURL)
	}

	m := o.merge(Options{Workers: 9, Scope: "acme", Filters: filter.Set{IncludeArchived: true}})
	if m.Workers != 9 || m.Scope != "acme" || !m.Filters.IncludeArchived {
		t.Fatalf("override lost: %+v", m)
	}
	if m.UnitTimeout != 2*time.Second || m.Fingerprinter != ingest.BackendGitCLI {
		t.Fatalf("config lost: %+v", m)
	}
}
