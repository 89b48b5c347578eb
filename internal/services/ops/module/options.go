package module

import "srcfingerprint/internal/platform/config"

// Options holds configuration settings for the ops surface
type Options struct {
	// Addr is the listen address; empty disables the surface
	Addr        string
	CORSOrigins []string
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	oc := cfg.Prefix("SRCFP_OPS_")
	return Options{
		Addr:        oc.MayString("ADDR", ""),
		CORSOrigins: oc.MayCSV("CORS_ORIGINS", nil),
	}
}
