package modkit

import (
	"context"

	"srcfingerprint/internal/modkit/repokit"
	"srcfingerprint/internal/platform/config"
	"srcfingerprint/internal/platform/logger"
	"srcfingerprint/internal/platform/store"
)

// Deps holds core dependencies passed to modules.
// Backends are nil when not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
	RDS store.Redis

	// Guard reports backend readiness; nil means always ready
	Guard func(context.Context) error
}

// FromStore copies the opened backends of st into Deps; a nil store yields no backends
func FromStore(log logger.Logger, cfg config.Conf, st *store.Store) Deps {
	d := Deps{Log: log, Cfg: cfg}
	if st == nil {
		return d
	}
	d.PG, d.CH, d.RDS = st.PG, st.CH, st.RDS
	d.Guard = st.Guard
	return d
}

// Ready runs Guard when set
func (d Deps) Ready(ctx context.Context) error {
	if d.Guard == nil {
		return nil
	}
	return d.Guard(ctx)
}
