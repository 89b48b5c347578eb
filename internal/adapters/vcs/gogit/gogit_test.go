package gogit

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	perr "srcfingerprint/internal/platform/errors"
)

// initRepo creates a repository with one commit and returns its path and HEAD sha
func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "repo")
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatal(err)
	}
	h, err := wt.Commit("init", &git.CommitOptions{Author: &object.Signature{Name: "t", Email: "t@example.com", When: time.Unix(0, 0)}})
	if err != nil {
		t.Fatal(err)
	}
	return dir, h.String()
}

func TestLocalHead(t *testing.T) {
	dir, sha := initRepo(t)
	c := New(Options{})

	got, err := c.LocalHead(context.Background(), dir)
	if err != nil || got != sha {
		t.Fatalf("LocalHead=%q,%v want %q", got, err, sha)
	}

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if got, err := c.LocalHead(context.Background(), sub); err != nil || got != sha {
		t.Fatalf("LocalHead(subdir)=%q,%v want %q", got, err, sha)
	}
}

func TestLocalHead_NotARepository(t *testing.T) {
	_, err := New(Options{}).LocalHead(context.Background(), t.TempDir())
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestLocalHead_EmptyRepository(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	_, err := New(Options{}).LocalHead(context.Background(), dir)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestLocalHead_CanceledContext(t *testing.T) {
	dir, _ := initRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}).LocalHead(ctx, dir); err == nil {
		t.Fatal("expected context error")
	}
}

func TestRemoteHead_ClonesIntoIsolatedArea(t *testing.T) {
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not available for the file transport")
	}
	src, sha := initRepo(t)
	cloneDir := t.TempDir()
	c := New(Options{CloneDir: cloneDir})

	got, err := c.RemoteHead(context.Background(), "file://"+src, nil)
	if err != nil || got != sha {
		t.Fatalf("RemoteHead=%q,%v want %q", got, err, sha)
	}
	left, err := os.ReadDir(cloneDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("working areas left behind: %v", left)
	}
}

func TestRemoteHead_MissingCloneDir(t *testing.T) {
	c := New(Options{CloneDir: filepath.Join(t.TempDir(), "missing")})
	if _, err := c.RemoteHead(context.Background(), "https://example.invalid/x.git", nil); err == nil {
		t.Fatal("expected error for a missing clone dir")
	}
}

func TestAuthMethods(t *testing.T) {
	if AccessToken("") != nil || Bearer("") != nil {
		t.Fatal("empty token must mean no auth")
	}
	b, ok := AccessToken("tok").(*githttp.BasicAuth)
	if !ok || b.Username != "x-access-token" || b.Password != "tok" {
		t.Fatalf("AccessToken=%#v", AccessToken("tok"))
	}
	if tk, ok := Bearer("tok").(*githttp.TokenAuth); !ok || tk.Token != "tok" {
		t.Fatalf("Bearer=%#v", Bearer("tok"))
	}
}
