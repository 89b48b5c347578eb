// Package modkit provides module wiring and core deps
package modkit

import (
	phttp "srcfingerprint/internal/platform/net/http"
	pstrings "srcfingerprint/internal/platform/strings"
)

// Module is the common surface for modules; keep this tiny so modules stay decoupled
type Module interface {
	// Name returns the module name
	Name() string

	// Ports returns a module specific port set for cross wiring
	Ports() any
}

// Mounter is implemented by modules that expose HTTP routes
type Mounter interface {
	MountRoutes(r phttp.Router)
}

// Mount mounts every module that has routes, under its prefix when it has one
func Mount(r phttp.Router, mods ...Module) {
	for _, m := range mods {
		mt, ok := m.(Mounter)
		if !ok {
			continue
		}
		if p, ok := m.(interface{ Prefix() string }); ok && p.Prefix() != "" {
			r.Route(pstrings.MustPrefix(p.Prefix()), mt.MountRoutes)
			continue
		}
		mt.MountRoutes(r)
	}
}
