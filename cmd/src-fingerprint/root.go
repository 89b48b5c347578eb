package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"srcfingerprint/internal/core/version"
	perr "srcfingerprint/internal/platform/errors"
)

// cliFlags are the raw flag values. Only flags the operator set override the run file
type cliFlags struct {
	runConfig
	configPath string
	verbose    bool
}

// overlay copies one flag's value from src into dst, keyed by flag name
var overlay = map[string]func(dst, src *runConfig){
	"provider":               func(d, s *runConfig) { d.Provider = s.Provider },
	"token":                  func(d, s *runConfig) { d.Token = s.Token },
	"object":                 func(d, s *runConfig) { d.Object = s.Object },
	"url":                    func(d, s *runConfig) { d.URLs = s.URLs },
	"pool-size":              func(d, s *runConfig) { d.PoolSize = s.PoolSize },
	"timeout":                func(d, s *runConfig) { d.Timeout = s.Timeout },
	"global-timeout":         func(d, s *runConfig) { d.GlobalTimeout = s.GlobalTimeout },
	"limit":                  func(d, s *runConfig) { d.Limit = s.Limit },
	"include-public-repos":   func(d, s *runConfig) { d.IncludePublic = s.IncludePublic },
	"include-archived-repos": func(d, s *runConfig) { d.IncludeArchived = s.IncludeArchived },
	"include-forked-repos":   func(d, s *runConfig) { d.IncludeForked = s.IncludeForked },
	"provider-url":           func(d, s *runConfig) { d.ProviderURL = s.ProviderURL },
	"repo-name":              func(d, s *runConfig) { d.RepoName = s.RepoName },
	"output":                 func(d, s *runConfig) { d.Output = s.Output },
	"export-format":          func(d, s *runConfig) { d.ExportFormat = s.ExportFormat },
	"clone-dir":              func(d, s *runConfig) { d.CloneDir = s.CloneDir },
	"fingerprinter":          func(d, s *runConfig) { d.Fingerprinter = s.Fingerprinter },
	"pg-url":                 func(d, s *runConfig) { d.PGURL = s.PGURL },
	"ch-url":                 func(d, s *runConfig) { d.CHURL = s.CHURL },
	"redis-addr":             func(d, s *runConfig) { d.RedisAddr = s.RedisAddr },
	"ops-addr":               func(d, s *runConfig) { d.OpsAddr = s.OpsAddr },
}

func newRootCmd() *cobra.Command {
	var fl cliFlags

	cmd := &cobra.Command{
		Use:   "src-fingerprint -p github|bitbucket|repository [flags]",
		Short: "Collect repository HEAD fingerprints from a VCS provider",
		Long: "src-fingerprint lists the repositories of an organization, user or project,\n" +
			"resolves the HEAD commit of each one with a bounded worker pool and\n" +
			"writes one fingerprint record per repository.",
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return perr.InvalidArgf("unexpected arguments: %s", strings.Join(args, " "))
			}
			return nil
		},
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := resolve(cmd.Flags(), fl)
			if err != nil {
				return err
			}
			initLogging(fl.verbose, cmd.ErrOrStderr())
			return run(cmd.Context(), rc, fl.verbose, cmd.ErrOrStderr())
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "flags")
	})

	bindFlags(cmd.Flags(), &fl)
	return cmd
}

// bindFlags registers every CLI flag on f, storing values in fl
func bindFlags(f *pflag.FlagSet, fl *cliFlags) {
	f.SortFlags = false
	f.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "cloners" {
			name = "pool-size"
		}
		return pflag.NormalizedName(name)
	})

	f.StringVarP(&fl.Provider, "provider", "p", "", "vcs provider: github, bitbucket or repository")
	f.StringVarP(&fl.Token, "token", "t", "", "api token, comma separated list rotates on github (env VCS_TOKEN, GITHUB_TOKEN)")
	f.StringVar(&fl.Object, "object", "", "organization, user, project or single repository location")
	f.StringArrayVarP(&fl.URLs, "url", "u", nil, "explicit repository location, repeatable (repository provider)")
	f.IntVar(&fl.PoolSize, "pool-size", 0, "number of concurrent fingerprint workers (default 8)")
	f.DurationVar(&fl.Timeout, "timeout", 0, "per repository timeout, 0 for none")
	f.DurationVar(&fl.GlobalTimeout, "global-timeout", 0, "run deadline, 0 for none")
	f.IntVar(&fl.Limit, "limit", 0, "cap on collected repositories, 0 for unlimited")
	f.BoolVar(&fl.IncludePublic, "include-public-repos", false, "include public repositories")
	f.BoolVar(&fl.IncludeArchived, "include-archived-repos", false, "include archived repositories")
	f.BoolVar(&fl.IncludeForked, "include-forked-repos", false, "include forked repositories")
	f.StringVar(&fl.ProviderURL, "provider-url", "", "provider api base url, required for bitbucket")
	f.StringVar(&fl.RepoName, "repo-name", "", "output name for a single repository location")
	f.StringVarP(&fl.Output, "output", "o", "", "output path, '-' for stdout (default fingerprints.jsonl.gz)")
	f.StringVarP(&fl.ExportFormat, "export-format", "f", "", "jsonl, gzip-jsonl, json or gzip-json (default gzip-jsonl)")
	f.StringVar(&fl.CloneDir, "clone-dir", "", "parent directory of the per repository working areas")
	f.StringVar(&fl.Fingerprinter, "fingerprinter", "", "fingerprint backend: gogit or gitcli")
	f.StringVar(&fl.PGURL, "pg-url", "", "also upsert records into postgres")
	f.StringVar(&fl.CHURL, "ch-url", "", "also insert records into clickhouse")
	f.StringVar(&fl.RedisAddr, "redis-addr", "", "also publish records to a redis stream")
	f.StringVar(&fl.OpsAddr, "ops-addr", "", "serve /healthz, /readyz and /metrics during the run")
	f.StringVar(&fl.configPath, "config", "", "yaml run file, flags override it")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "debug logging")
}

// resolve merges run file and set flags, fills the token from env and validates
func resolve(fs *pflag.FlagSet, fl cliFlags) (runConfig, error) {
	var rc runConfig
	if fl.configPath != "" {
		var err error
		if rc, err = loadRunFile(fl.configPath); err != nil {
			return rc, err
		}
	}
	fs.Visit(func(f *pflag.Flag) {
		if fn, ok := overlay[f.Name]; ok {
			fn(&rc, &fl.runConfig)
		}
	})
	if rc.Token == "" {
		rc.Token = tokenFromEnv()
	}
	rc.normalize()
	if err := rc.validate(); err != nil {
		return rc, err
	}
	return rc, nil
}
