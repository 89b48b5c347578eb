package main

import (
	"context"
	"fmt"
	"io"

	"srcfingerprint/internal/adapters/export"
	"srcfingerprint/internal/modkit"
	"srcfingerprint/internal/platform/config"
	"srcfingerprint/internal/platform/logger"
	"srcfingerprint/internal/platform/store"
	"srcfingerprint/internal/services/collector/domain"
	collector "srcfingerprint/internal/services/collector/module"
	ops "srcfingerprint/internal/services/ops/module"
)

func tokenFromEnv() string {
	return config.New().First("", "VCS_TOKEN", "GITHUB_TOKEN")
}

func initLogging(verbose bool, w io.Writer) {
	opts := logger.FromEnv()
	if verbose {
		opts.Level = "debug"
	}
	opts.Writer = w
	logger.Init(opts)
}

// storeConfig takes backend addresses from flags; SRCFP_PG_* tunes the pool
func storeConfig(rc runConfig, verbose bool) store.Config {
	pc := config.New().Prefix("SRCFP_PG_")
	return store.Config{
		AppName: "src-fingerprint",
		PG: store.PGConfig{
			Enabled:     rc.PGURL != "",
			URL:         rc.PGURL,
			MaxConns:    int32(pc.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pc.MayInt("SLOW_MS", 500),
			LogSQL:      verbose || pc.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled: rc.CHURL != "",
			URL:     rc.CHURL,
		},
		RDS: store.RedisConfig{
			Enabled: rc.RedisAddr != "",
			Addr:    rc.RedisAddr,
		},
	}
}

func collectorOptions(rc runConfig) collector.Options {
	o := collector.Options{
		Provider:      domain.ProviderKind(rc.Provider),
		Token:         rc.Token,
		Scope:         rc.Object,
		Locations:     rc.URLs,
		NameOverride:  rc.RepoName,
		Filters:       rc.Set,
		Limit:         rc.Limit,
		Workers:       rc.PoolSize,
		UnitTimeout:   rc.Timeout,
		RunTimeout:    rc.GlobalTimeout,
		CloneDir:      rc.CloneDir,
		Fingerprinter: rc.Fingerprinter,
		Output:        rc.Output,
		Format:        export.Format(rc.ExportFormat),
	}
	o.GitHub.BaseURL = rc.ProviderURL
	o.Bitbucket.BaseURL = rc.ProviderURL
	return o
}

// run opens the optional backends, serves the ops surface and executes one collection run
func run(ctx context.Context, rc runConfig, verbose bool, stderr io.Writer) error {
	l := logger.Named("cli")
	cfg := config.New()

	st, err := store.Open(ctx, storeConfig(rc, verbose), store.WithLogger(*l))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.WithoutCancel(ctx)); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	deps := modkit.FromStore(*l, cfg, st)

	om := ops.New(deps, ops.Options{Addr: rc.OpsAddr})
	if om.Enabled() {
		srv := om.Server()
		opsCtx, stopOps := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan error, 1)
		go func() { done <- srv.Run(opsCtx) }()
		defer func() {
			stopOps()
			if err := <-done; err != nil {
				l.Warn().Err(err).Msg("ops server")
			}
		}()
	}

	cm, err := collector.New(ctx, deps, collectorOptions(rc))
	if err != nil {
		return err
	}
	l.Debug().
		Str("provider", rc.Provider).
		Str("object", rc.Object).
		Int("limit", rc.Limit).
		Bool("include_public", rc.IncludePublic).
		Bool("include_archived", rc.IncludeArchived).
		Bool("include_forked", rc.IncludeForked).
		Msg("starting run")

	sum, err := cm.Run(ctx)
	fmt.Fprintln(stderr, sum.String())
	return err
}
