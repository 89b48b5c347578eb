package ingest

import (
	"context"
	"encoding/base64"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"srcfingerprint/internal/adapters/vcs/gitcli"
	"srcfingerprint/internal/adapters/vcs/gogit"
	"srcfingerprint/internal/services/collector/domain"
)

// Fingerprinter backends
const (
	BackendGoGit  = "gogit"
	BackendGitCLI = "gitcli"
)

// GoGit implements domain.Fingerprinter on top of go-git
type GoGit struct {
	C     *gogit.Cloner
	Token string
}

// Fingerprint implements domain.Fingerprinter
func (f *GoGit) Fingerprint(ctx context.Context, d domain.Descriptor) (string, error) {
	if isLocal(d) {
		return f.C.LocalHead(ctx, d.Location)
	}
	var auth transport.AuthMethod
	switch d.Provider {
	case domain.ProviderGitHub:
		auth = gogit.AccessToken(f.Token)
	case domain.ProviderBitbucket:
		auth = gogit.Bearer(f.Token)
	}
	return f.C.RemoteHead(ctx, d.FetchLocation(), auth)
}

// GitCLI implements domain.Fingerprinter with the git binary
type GitCLI struct {
	R     *gitcli.Runner
	Token string
}

// Fingerprint implements domain.Fingerprinter
func (f *GitCLI) Fingerprint(ctx context.Context, d domain.Descriptor) (string, error) {
	if isLocal(d) {
		return f.R.LocalHead(ctx, d.Location)
	}
	return f.R.RemoteHead(ctx, d.FetchLocation(), authHeader(d.Provider, f.Token))
}

// authHeader builds the http.extraHeader value for a provider, empty when no token applies
func authHeader(kind domain.ProviderKind, token string) string {
	if token == "" {
		return ""
	}
	switch kind {
	case domain.ProviderGitHub:
		return "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("x-access-token:"+token))
	case domain.ProviderBitbucket:
		return "Authorization: Bearer " + token
	default:
		return ""
	}
}

func isLocal(d domain.Descriptor) bool {
	return d.Provider == domain.ProviderRepository && !isRemote(d.Location)
}
