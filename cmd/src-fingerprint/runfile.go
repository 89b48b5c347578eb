package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"srcfingerprint/internal/core/filter"
	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/validate"
)

// runConfig is the run selection after flags and the run file are merged
type runConfig struct {
	Provider      string        `yaml:"provider" validate:"required,oneof=github bitbucket repository"`
	Token         string        `yaml:"token" validate:"token_list"`
	Object        string        `yaml:"object" validate:"required_unless=Provider repository"`
	URLs          []string      `yaml:"urls" validate:"dive,required"`
	PoolSize      int           `yaml:"pool_size" validate:"gte=0,lte=512"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
	GlobalTimeout time.Duration `yaml:"global_timeout" validate:"gte=0"`
	Limit         int           `yaml:"limit" validate:"gte=0"`
	ProviderURL   string        `yaml:"provider_url" validate:"required_if=Provider bitbucket,omitempty,url"`
	RepoName      string        `yaml:"repo_name"`
	Output        string        `yaml:"output"`
	ExportFormat  string        `yaml:"export_format" validate:"omitempty,oneof=jsonl gzip-jsonl json gzip-json"`
	CloneDir      string        `yaml:"clone_dir" validate:"omitempty,dir"`
	Fingerprinter string        `yaml:"fingerprinter" validate:"omitempty,oneof=gogit gitcli"`

	PGURL     string `yaml:"pg_url" validate:"omitempty,url"`
	CHURL     string `yaml:"ch_url" validate:"omitempty,url"`
	RedisAddr string `yaml:"redis_addr" validate:"omitempty,hostname_port"`
	OpsAddr   string `yaml:"ops_addr"`

	filter.Set `yaml:",inline"`
}

// loadRunFile decodes a YAML run file. Unknown keys are rejected
func loadRunFile(path string) (runConfig, error) {
	var rc runConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return rc, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read run file %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&rc); err != nil && !errors.Is(err, io.EOF) {
		return rc, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "parse run file %s", path)
	}
	return rc, nil
}

// normalize trims and lowercases enum-like fields before validation
func (rc *runConfig) normalize() {
	rc.Provider = strings.ToLower(strings.TrimSpace(rc.Provider))
	rc.ExportFormat = strings.ToLower(strings.TrimSpace(rc.ExportFormat))
	rc.Fingerprinter = strings.ToLower(strings.TrimSpace(rc.Fingerprinter))
	rc.Object = strings.TrimSpace(rc.Object)
	rc.Token = strings.TrimSpace(rc.Token)
}

func (rc runConfig) validate() error {
	return validate.Struct(rc)
}
