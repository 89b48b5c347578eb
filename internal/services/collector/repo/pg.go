package repo

import (
	"context"

	"srcfingerprint/internal/modkit/repokit"
	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/store"
	"srcfingerprint/internal/services/collector/domain"
)

// FingerprintRepo persists records in postgres
type FingerprintRepo interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, r domain.Record) error
}

// Binder binds the postgres repo to a pool or tx
var Binder = repokit.BindFunc[FingerprintRepo](func(q repokit.Queryer) FingerprintRepo {
	return &pgRepo{q: q}
})

const pgSchema = `
CREATE TABLE IF NOT EXISTS fingerprints (
	run_id           text        NOT NULL,
	location         text        NOT NULL,
	repository_name  text        NOT NULL,
	provider         text        NOT NULL,
	scope            text        NOT NULL DEFAULT '',
	sha              text        NOT NULL,
	private          boolean     NOT NULL,
	fork             boolean     NOT NULL,
	archived         boolean     NOT NULL,
	fingerprinted_at timestamptz NOT NULL,
	PRIMARY KEY (run_id, location)
);
CREATE INDEX IF NOT EXISTS fingerprints_sha_idx ON fingerprints (sha)`

const pgUpsert = `
INSERT INTO fingerprints
	(run_id, location, repository_name, provider, scope, sha, private, fork, archived, fingerprinted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (run_id, location) DO UPDATE SET
	sha = EXCLUDED.sha,
	fingerprinted_at = EXCLUDED.fingerprinted_at`

type pgRepo struct{ q repokit.Queryer }

func (r *pgRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, pgSchema); err != nil {
		return perr.WithOp(perr.FromPostgres(err, "create fingerprints table"), "repo.pg.schema")
	}
	return nil
}

func (r *pgRepo) Upsert(ctx context.Context, rec domain.Record) error {
	err := store.ExecOne(ctx, r.q, pgUpsert,
		rec.RunID, rec.Location, rec.RepositoryName, string(rec.Provider), rec.Scope,
		rec.SHA, rec.Private, rec.Fork, rec.Archived, rec.FingerprintedAt,
	)
	if err != nil {
		return perr.WithOp(perr.FromPostgresf(err, "upsert %s", rec.RepositoryName), "repo.pg.upsert")
	}
	return nil
}

// PG is the postgres record sink
type PG struct {
	tx   repokit.TxRunner
	repo FingerprintRepo
}

// NewPG creates the table if needed and returns the sink
func NewPG(ctx context.Context, tx repokit.TxRunner) (*PG, error) {
	if err := repokit.WithTx(ctx, tx, Binder, func(r FingerprintRepo) error {
		return r.EnsureSchema(ctx)
	}); err != nil {
		return nil, err
	}
	return &PG{tx: tx, repo: repokit.MustBind(Binder, tx)}, nil
}

// Name identifies the sink in logs and metrics
func (p *PG) Name() string { return "postgres" }

// Write upserts one record
func (p *PG) Write(ctx context.Context, r domain.Record) error { return p.repo.Upsert(ctx, r) }

// Close is a no-op; the pool belongs to the store
func (p *PG) Close(context.Context) error { return nil }
