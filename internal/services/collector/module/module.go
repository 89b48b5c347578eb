// Package module implements the collector module
package module

import (
	"context"
	"errors"
	"os"

	"srcfingerprint/internal/adapters/export"
	"srcfingerprint/internal/adapters/ingest/bitbucket"
	"srcfingerprint/internal/adapters/ingest/github"
	"srcfingerprint/internal/adapters/vcs/gitcli"
	"srcfingerprint/internal/adapters/vcs/gogit"
	"srcfingerprint/internal/modkit"
	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/services/collector/domain"
	"srcfingerprint/internal/services/collector/ingest"
	"srcfingerprint/internal/services/collector/repo"
	"srcfingerprint/internal/services/collector/service"
)

// Ports exposed by the collector module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	name  string
	ports Ports
	req   domain.Request
	opts  Options
}

var _ modkit.Module = (*Module)(nil)

// New wires provider, fingerprinter and sinks for one run. Config is merged with overrides,
// overrides win. Sinks are opened here and closed by the run
func New(ctx context.Context, deps modkit.Deps, overrides Options, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("collector")}, opts...)...)
	o := FromConfig(deps.Cfg).merge(overrides)

	p, token, err := buildProvider(o)
	if err != nil {
		return nil, err
	}
	fp, err := buildFingerprinter(o, token)
	if err != nil {
		return nil, err
	}
	writers, err := buildWriters(ctx, deps, o)
	if err != nil {
		return nil, err
	}

	svc := service.New(p, fp, service.Config{
		Workers:     o.Workers,
		UnitTimeout: o.UnitTimeout,
		RunTimeout:  o.RunTimeout,
	}, writers...)

	return &Module{
		name:  b.Name,
		ports: Ports{Runner: svc},
		req:   domain.Request{Scope: o.Scope, Filters: o.Filters, Limit: o.Limit},
		opts:  o,
	}, nil
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Request is the run request built from the merged options
func (m *Module) Request() domain.Request { return m.req }

// Run executes the configured run
func (m *Module) Run(ctx context.Context) (domain.Summary, error) {
	return m.ports.Runner.Run(ctx, m.req)
}

func buildProvider(o Options) (domain.Provider, string, error) {
	switch o.Provider {
	case domain.ProviderGitHub:
		gopts := o.GitHub
		gopts.TokensCSV = o.Token
		c := github.NewClient(gopts)
		return ingest.NewGitHub(c, o.Filters), c.Token(), nil
	case domain.ProviderBitbucket:
		bopts := o.Bitbucket
		bopts.Token = o.Token
		c, err := bitbucket.NewClient(bopts)
		if err != nil {
			return nil, "", perr.WithField(err, "provider_url")
		}
		return ingest.NewBitbucket(c), o.Token, nil
	case domain.ProviderRepository:
		return &ingest.Repository{Locations: o.Locations, NameOverride: o.NameOverride}, o.Token, nil
	case "":
		return nil, "", perr.WithField(perr.InvalidArgf("provider is required"), "provider")
	default:
		_, err := domain.ParseProviderKind(string(o.Provider))
		return nil, "", perr.WithField(err, "provider")
	}
}

func buildFingerprinter(o Options, token string) (domain.Fingerprinter, error) {
	switch o.Fingerprinter {
	case "", ingest.BackendGoGit:
		if o.CloneDir != "" {
			if st, err := os.Stat(o.CloneDir); err != nil || !st.IsDir() {
				return nil, perr.WithField(perr.InvalidArgf("clone dir %q is not a directory", o.CloneDir), "clone_dir")
			}
		}
		return &ingest.GoGit{C: gogit.New(gogit.Options{CloneDir: o.CloneDir}), Token: token}, nil
	case ingest.BackendGitCLI:
		return &ingest.GitCLI{R: gitcli.New(gitcli.Options{Bin: o.GitBin}), Token: token}, nil
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown fingerprinter %q", o.Fingerprinter), "fingerprinter")
	}
}

// buildWriters opens the file exporter first, then the optional backend sinks.
// On failure everything already opened is closed
func buildWriters(ctx context.Context, deps modkit.Deps, o Options) (ws []domain.RecordWriter, err error) {
	defer func() {
		if err == nil {
			return
		}
		var errs []error
		for _, w := range ws {
			errs = append(errs, w.Close(ctx))
		}
		if cerr := errors.Join(errs...); cerr != nil {
			deps.Log.Warn().Err(cerr).Msg("closing sinks after setup failure")
		}
	}()

	format, err := export.ParseFormat(string(o.Format))
	if err != nil {
		return nil, perr.WithField(err, "export_format")
	}
	out := o.Output
	if out == "" {
		out = format.DefaultPath()
	}
	fw, err := export.Open(out, format, os.Stdout)
	if err != nil {
		return nil, err
	}
	ws = append(ws, repo.NewFile(fw))

	if deps.PG != nil {
		s, err := repo.NewPG(ctx, deps.PG)
		if err != nil {
			return ws, err
		}
		ws = append(ws, s)
	}
	if deps.CH != nil {
		s, err := repo.NewCH(ctx, deps.CH, o.CHBatch)
		if err != nil {
			return ws, err
		}
		ws = append(ws, s)
	}
	if deps.RDS != nil {
		ws = append(ws, repo.NewStream(deps.RDS, o.Stream, o.StreamMaxLen))
	}
	return ws, nil
}
