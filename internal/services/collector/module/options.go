package module

import (
	"time"

	"srcfingerprint/internal/adapters/export"
	"srcfingerprint/internal/adapters/ingest/bitbucket"
	"srcfingerprint/internal/adapters/ingest/github"
	"srcfingerprint/internal/core/filter"
	"srcfingerprint/internal/platform/config"
	"srcfingerprint/internal/services/collector/domain"
	"srcfingerprint/internal/services/collector/ingest"
	"srcfingerprint/internal/services/collector/repo"
)

// Options holds configuration settings for the collector module
type Options struct {
	// run selection, normally from flags or the run file
	Provider     domain.ProviderKind
	Token        string
	Scope        string
	Locations    []string
	NameOverride string
	Filters      filter.Set
	Limit        int

	// engine
	Workers       int
	UnitTimeout   time.Duration
	RunTimeout    time.Duration
	CloneDir      string
	Fingerprinter string
	GitBin        string

	// outputs
	Output       string
	Format       export.Format
	CHBatch      int
	Stream       string
	StreamMaxLen int64

	GitHub    github.Options
	Bitbucket bitbucket.Options
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	cc := cfg.Prefix("SRCFP_COLLECTOR_")
	gh := cfg.Prefix("SRCFP_GITHUB_")
	bb := cfg.Prefix("SRCFP_BITBUCKET_")
	return Options{
		Workers:       cc.MayInt("WORKERS", 8),
		UnitTimeout:   cc.MayDuration("TIMEOUT", 0),
		RunTimeout:    cc.MayDuration("GLOBAL_TIMEOUT", 0),
		CloneDir:      cc.MayString("CLONE_DIR", ""),
		Fingerprinter: cc.MayEnum("FINGERPRINTER", ingest.BackendGoGit, ingest.BackendGoGit, ingest.BackendGitCLI),
		GitBin:        cc.MayString("GIT_BIN", "git"),
		Format:        export.Format(cc.MayString("EXPORT_FORMAT", string(export.DefaultFormat))),
		CHBatch:       cc.MayInt("CH_BATCH", repo.DefaultCHBatch),
		Stream:        cc.MayString("STREAM", repo.DefaultStream),
		StreamMaxLen:  int64(cc.MayInt("STREAM_MAXLEN", 0)),
		GitHub: github.Options{
			BaseURL:    gh.MayString("URL", ""),
			UserAgent:  gh.MayString("USER_AGENT", ""),
			Timeout:    gh.MayDuration("TIMEOUT", 30*time.Second),
			MaxRetries: gh.MayInt("MAX_RETRIES", 3),
			RetryBase:  gh.MayDuration("RETRY_BASE", 500*time.Millisecond),
		},
		Bitbucket: bitbucket.Options{
			BaseURL:    bb.MayString("URL", ""),
			UserAgent:  bb.MayString("USER_AGENT", ""),
			Timeout:    bb.MayDuration("TIMEOUT", 30*time.Second),
			MaxRetries: bb.MayInt("MAX_RETRIES", 3),
			RetryBase:  bb.MayDuration("RETRY_BASE", 500*time.Millisecond),
		},
	}
}

// merge lays non-zero overrides over o. Filters always come from overrides
func (o Options) merge(ov Options) Options {
	if ov.Provider != "" {
		o.Provider = ov.Provider
	}
	if ov.Token != "" {
		o.Token = ov.Token
	}
	if ov.Scope != "" {
		o.Scope = ov.Scope
	}
	if len(ov.Locations) > 0 {
		o.Locations = ov.Locations
	}
	if ov.NameOverride != "" {
		o.NameOverride = ov.NameOverride
	}
	o.Filters = ov.Filters
	if ov.Limit != 0 {
		o.Limit = ov.Limit
	}
	if ov.Workers != 0 {
		o.Workers = ov.Workers
	}
	if ov.UnitTimeout != 0 {
		o.UnitTimeout = ov.UnitTimeout
	}
	if ov.RunTimeout != 0 {
		o.RunTimeout = ov.RunTimeout
	}
	if ov.CloneDir != "" {
		o.CloneDir = ov.CloneDir
	}
	if ov.Fingerprinter != "" {
		o.Fingerprinter = ov.Fingerprinter
	}
	if ov.GitBin != "" {
		o.GitBin = ov.GitBin
	}
	if ov.Output != "" {
		o.Output = ov.Output
	}
	if ov.Format != "" {
		o.Format = ov.Format
	}
	if ov.CHBatch != 0 {
		o.CHBatch = ov.CHBatch
	}
	if ov.Stream != "" {
		o.Stream = ov.Stream
	}
	if ov.StreamMaxLen != 0 {
		o.StreamMaxLen = ov.StreamMaxLen
	}
	if ov.GitHub.BaseURL != "" {
		o.GitHub.BaseURL = ov.GitHub.BaseURL
	}
	if ov.Bitbucket.BaseURL != "" {
		o.Bitbucket.BaseURL = ov.Bitbucket.BaseURL
	}
	return o
}
