package ingest

import (
	"context"
	"iter"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	perr "srcfingerprint/internal/platform/errors"
	pstrings "srcfingerprint/internal/platform/strings"
	"srcfingerprint/internal/services/collector/domain"
)

// Repository turns explicitly named locations into descriptors without any network I/O
type Repository struct {
	// Locations are listed after the scope location, if any
	Locations []string

	// NameOverride replaces the derived name when exactly one location is given
	NameOverride string
}

// Kind implements domain.Provider
func (p *Repository) Kind() domain.ProviderKind { return domain.ProviderRepository }

// List implements domain.Provider
func (p *Repository) List(_ context.Context, scope string) iter.Seq2[domain.Descriptor, error] {
	var locs []string
	if s := strings.TrimSpace(scope); s != "" {
		locs = append(locs, s)
	}
	for _, l := range p.Locations {
		if l = strings.TrimSpace(l); l != "" {
			locs = append(locs, l)
		}
	}

	return func(yield func(domain.Descriptor, error) bool) {
		if len(locs) == 0 {
			yield(domain.Descriptor{}, perr.InvalidArgf("repository provider needs at least one location"))
			return
		}
		for _, l := range locs {
			d, err := describeLocation(l)
			if err != nil {
				yield(domain.Descriptor{}, err)
				return
			}
			if len(locs) == 1 && p.NameOverride != "" {
				d.Name = p.NameOverride
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}

func describeLocation(loc string) (domain.Descriptor, error) {
	d := domain.Descriptor{Provider: domain.ProviderRepository, Scope: loc, Explicit: true}
	if isRemote(loc) {
		d.Location = pstrings.StripUserinfo(loc)
		d.Scope = d.Location
		if d.Location != loc {
			d.Remote = loc
		}
		d.Name = RemoteName(d.Location)
		return d, nil
	}
	abs, err := filepath.Abs(loc)
	if err != nil {
		return domain.Descriptor{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "resolve repository path %q", loc)
	}
	d.Location = abs
	d.Name = filepath.Base(abs)
	return d, nil
}

// isRemote tells URLs and scp-like git addresses apart from filesystem paths
func isRemote(loc string) bool {
	if strings.Contains(loc, "://") {
		return true
	}
	// user@host:path, but not a windows drive letter
	if i := strings.Index(loc, ":"); i > 1 && !strings.ContainsAny(loc[:i], `/\`) {
		return strings.Contains(loc[:i], "@") || strings.Contains(loc[:i], ".")
	}
	return false
}

// RemoteName derives a repository name from a clone URL: the last path element without .git
func RemoteName(loc string) string {
	p := loc
	if u, err := url.Parse(loc); err == nil && u.Scheme != "" {
		p = u.Path
	} else if _, after, ok := strings.Cut(loc, ":"); ok {
		p = after
	}
	p = strings.TrimRight(p, "/")
	name := strings.TrimSuffix(path.Base(p), ".git")
	if name == "" || name == "." || name == "/" {
		return loc
	}
	return name
}
