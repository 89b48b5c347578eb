package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"srcfingerprint/internal/core/filter"
	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/testkit"
)

func parse(t *testing.T, args ...string) (runConfig, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var fl cliFlags
	bindFlags(fs, &fl)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return resolve(fs, fl)
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func clearTokens(t *testing.T) {
	t.Setenv("VCS_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
}

func TestResolve_FlagsOverrideRunFile(t *testing.T) {
	clearTokens(t)
	p := writeFile(t, `
provider: github
object: acme
pool_size: 4
timeout: 30s
include_forked: true
export_format: JSONL
`)
	got, err := parse(t, "--config", p, "--cloners", "2", "--object", "other", "--include-public-repos")
	if err != nil {
		t.Fatal(err)
	}
	want := runConfig{
		Provider:     "github",
		Object:       "other",
		PoolSize:     2,
		Timeout:      30 * time.Second,
		ExportFormat: "jsonl",
		Set:          filter.Set{IncludePublic: true, IncludeForked: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
}

func TestResolve_TokenFallsBackToEnv(t *testing.T) {
	t.Setenv("VCS_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "a,b")
	got, err := parse(t, "-p", "github", "--object", "acme")
	if err != nil {
		t.Fatal(err)
	}
	if got.Token != "a,b" {
		t.Fatalf("token=%q", got.Token)
	}

	t.Setenv("VCS_TOKEN", "v")
	got, _ = parse(t, "-p", "github", "--object", "acme")
	if got.Token != "v" {
		t.Fatalf("VCS_TOKEN should win, got %q", got.Token)
	}
	got, _ = parse(t, "-p", "github", "--object", "acme", "-t", "flag")
	if got.Token != "flag" {
		t.Fatalf("flag should win, got %q", got.Token)
	}
}

func TestStoreConfig_PoolTuningFromEnv(t *testing.T) {
	t.Setenv("SRCFP_PG_MAX_CONNS", "12")
	t.Setenv("SRCFP_PG_SLOW_MS", "")
	t.Setenv("SRCFP_PG_LOG_SQL", "true")

	cfg := storeConfig(runConfig{PGURL: "postgres://fp@localhost/fp"}, false)
	if !cfg.PG.Enabled || cfg.PG.MaxConns != 12 || cfg.PG.SlowQueryMs != 500 || !cfg.PG.LogSQL {
		t.Fatalf("pg config = %+v", cfg.PG)
	}
	if cfg.CH.Enabled || cfg.RDS.Enabled {
		t.Fatalf("unset backends enabled: %+v", cfg)
	}

	t.Setenv("SRCFP_PG_LOG_SQL", "")
	if cfg := storeConfig(runConfig{}, true); cfg.PG.Enabled || !cfg.PG.LogSQL || cfg.PG.MaxConns != 12 {
		t.Fatalf("verbose pg config = %+v", cfg.PG)
	}
}

func TestResolve_Invalid(t *testing.T) {
	clearTokens(t)
	cases := []struct {
		name  string
		args  []string
		field string
	}{
		{"missing provider", []string{"--object", "acme"}, "provider"},
		{"unknown provider", []string{"-p", "gitlab", "--object", "acme"}, "provider"},
		{"github without object", []string{"-p", "github"}, "object"},
		{"bitbucket without url", []string{"-p", "bitbucket", "--object", "TM"}, "provider_url"},
		{"bad format", []string{"-p", "repository", "-u", ".", "-f", "xml"}, "export_format"},
		{"bad fingerprinter", []string{"-p", "repository", "-u", ".", "--fingerprinter", "svn"}, "fingerprinter"},
		{"negative limit", []string{"-p", "repository", "-u", ".", "--limit", "-1"}, "limit"},
		{"empty token entry", []string{"-p", "github", "--object", "acme", "-t", "a,,b"}, "token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, tc.args...)
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
			e, _ := perr.As(err)
			if e.Field() != tc.field {
				t.Fatalf("field=%q want %q (%v)", e.Field(), tc.field, err)
			}
			if perr.ExitCode(err) != 2 {
				t.Fatalf("exit=%d", perr.ExitCode(err))
			}
		})
	}
}

func TestResolve_RunFileErrors(t *testing.T) {
	clearTokens(t)
	_, err := parse(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing file: %v", err)
	}
	_, err = parse(t, "--config", writeFile(t, "provider: github\nbogus: 1\n"))
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown key: %v", err)
	}
	if err == nil {
		t.Fatal("expected error")
	}
	testkit.MustContain(t, err.Error(), "bogus")
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func TestCLI_Version(t *testing.T) {
	out, _, err := execute(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	testkit.MustContain(t, out, "src-fingerprint")
}

func TestCLI_UsageErrorsExitTwo(t *testing.T) {
	clearTokens(t)
	for _, args := range [][]string{
		{"--no-such-flag"},
		{"-p", "repository", "extra-arg"},
		{"-p", "github"},
	} {
		_, _, err := execute(t, args...)
		if got := perr.ExitCode(err); got != 2 {
			t.Fatalf("%v: exit=%d err=%v", args, got, err)
		}
	}
}

func TestCLI_RepositoryRun(t *testing.T) {
	clearTokens(t)
	dir := filepath.Join(t.TempDir(), "widget")
	r, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, _ := r.Worktree()
	if _, err := wt.Add("main.go"); err != nil {
		t.Fatal(err)
	}
	h, err := wt.Commit("init", &git.CommitOptions{Author: &object.Signature{Name: "t", Email: "t@example.com", When: time.Unix(0, 0)}})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "fp.jsonl")
	_, stderr, err := execute(t, "-p", "repository", "--object", dir, "--repo-name", "gadget", "-o", out, "-f", "jsonl")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	testkit.MustContain(t, stderr, "Collected 1 repos, 1 fingerprinted")

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	testkit.MustContain(t, string(b), h.String())
	testkit.MustContain(t, string(b), `"repository_name":"gadget"`)
}
