// Package gitcli resolves repository HEAD commits through the git binary
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/logger"
	pstrings "srcfingerprint/internal/platform/strings"
)

// exit status git uses for "repository not found" style failures
const gitExitUnclean = 128

// Options configures the Runner
type Options struct {
	// Bin is the git executable; empty means "git" from PATH
	Bin string
}

// Runner shells out to git
type Runner struct {
	bin string
	log logger.Logger
}

// New creates a Runner
func New(o Options) *Runner {
	if o.Bin == "" {
		o.Bin = "git"
	}
	return &Runner{bin: o.Bin, log: *logger.Named("gitcli")}
}

// LocalHead runs git rev-parse HEAD inside path
func (r *Runner) LocalHead(ctx context.Context, path string) (string, error) {
	out, err := r.run(ctx, nil, "", "-C", path, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	return firstField(out, path)
}

// RemoteHead runs git ls-remote url HEAD; header, when set, is sent as an extra HTTP header
func (r *Runner) RemoteHead(ctx context.Context, url, header string) (string, error) {
	var cfg []string
	if header != "" {
		cfg = append(cfg, "GIT_CONFIG_COUNT=1", "GIT_CONFIG_KEY_0=http.extraHeader", "GIT_CONFIG_VALUE_0="+header)
	}
	out, err := r.run(ctx, cfg, url, "ls-remote", "--", url, "HEAD")
	if err != nil {
		return "", err
	}
	return firstField(out, pstrings.StripUserinfo(url))
}

// run starts git and kills its whole process tree when ctx ends.
// git forks helpers (remote-https, upload-pack) that a plain kill of the parent leaves running.
// secret, when set, is replaced by its credential-free form in reported stderr
func (r *Runner) run(ctx context.Context, env []string, secret string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var outbuf, errbuf bytes.Buffer
	cmd := exec.Command(r.bin, args...)
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	cmd.Env = append(append(os.Environ(), "GIT_TERMINAL_PROMPT=0"), env...)

	if err := cmd.Start(); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "start %s", r.bin)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return outbuf.String(), nil
		}
		stderr := strings.TrimSpace(errbuf.String())
		if secret != "" {
			stderr = strings.ReplaceAll(stderr, secret, pstrings.StripUserinfo(secret))
		}
		if ee := (*exec.ExitError)(nil); errors.As(err, &ee) && ee.ExitCode() == gitExitUnclean {
			r.log.Debug().Str("stderr", stderr).Msg("git reported an unclean exit")
			return "", perr.Newf(perr.ErrorCodeNotFound, "git %s: %s", args[0], stderr)
		}
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "git %s: %s", args[0], stderr)
	case <-ctx.Done():
		if kerr := terminateTree(int32(cmd.Process.Pid)); kerr != nil {
			r.log.Error().Err(kerr).Int("pid", cmd.Process.Pid).Msg("could not terminate git")
			_ = cmd.Process.Kill()
		}
		<-done
		return "", ctx.Err()
	}
}

// terminateTree kills pid and its descendants, listed before the parent dies
func terminateTree(pid int32) error {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	children, err := proc.Children()
	if err != nil {
		children = nil
	}
	if err := proc.Kill(); err != nil {
		return err
	}
	for _, child := range children {
		_ = terminateTree(child.Pid)
	}
	return nil
}

func firstField(out, what string) (string, error) {
	for line := range strings.SplitSeq(out, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			return f[0], nil
		}
	}
	return "", perr.NotFoundf("no HEAD reported for %s", what)
}
