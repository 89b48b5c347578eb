// Package module implements the ops module: health, readiness and metrics
package module

import (
	"context"
	"net/http"
	"time"

	"srcfingerprint/internal/core/version"
	"srcfingerprint/internal/modkit"
	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/metrics"
	phttp "srcfingerprint/internal/platform/net/http"
	"srcfingerprint/internal/platform/net/middleware"

	"github.com/go-chi/chi/v5"
)

// Module implements modkit.Module and modkit.Mounter
type Module struct {
	deps modkit.Deps
	opts Options
	name string
}

var (
	_ modkit.Module  = (*Module)(nil)
	_ modkit.Mounter = (*Module)(nil)
)

// New constructs the ops module; non-zero overrides win over config
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("ops")}, opts...)...)
	o := FromConfig(deps.Cfg)
	if overrides.Addr != "" {
		o.Addr = overrides.Addr
	}
	if len(overrides.CORSOrigins) > 0 {
		o.CORSOrigins = overrides.CORSOrigins
	}
	return &Module{deps: deps, opts: o, name: b.Name}
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return nil }

// Enabled reports whether a listen address is configured
func (m *Module) Enabled() bool { return m.opts.Addr != "" }

// MountRoutes satisfies modkit.Mounter
func (m *Module) MountRoutes(r phttp.Router) {
	phttp.GetJSON(r, "/healthz", m.health)
	phttp.GetJSON(r, "/readyz", m.ready)
	r.Handle("/metrics", metrics.Handler())
}

type health struct {
	Status  string            `json:"status"`
	Version version.BuildInfo `json:"version"`
}

func (m *Module) health(*http.Request) (any, error) {
	return health{Status: "ok", Version: version.Info()}, nil
}

func (m *Module) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := m.deps.Ready(ctx); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "backends not ready")
	}
	return map[string]string{"status": "ready"}, nil
}

// Server builds the ops HTTP server with the default middleware bundle and CORS
func (m *Module) Server() *phttp.Server {
	return phttp.NewServer(m.opts.Addr, func(mux *chi.Mux) {
		mux.Use(middleware.Defaults()...)
		mux.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: m.opts.CORSOrigins}))
		modkit.Mount(phttp.AdaptChi(mux), m)
	})
}
