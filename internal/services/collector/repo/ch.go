package repo

import (
	"context"

	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/store"
	"srcfingerprint/internal/services/collector/domain"
)

const chTable = "fingerprints"

const chSchema = `
CREATE TABLE IF NOT EXISTS fingerprints (
	run_id           String,
	location         String,
	repository_name  String,
	provider         LowCardinality(String),
	scope            String,
	sha              String,
	private          Bool,
	fork             Bool,
	archived         Bool,
	fingerprinted_at DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree(fingerprinted_at)
ORDER BY (run_id, location)`

// DefaultCHBatch is the number of rows buffered before a batch is sent
const DefaultCHBatch = 500

// CH buffers records and sends them to clickhouse in native batches
type CH struct {
	db    store.Clickhouse
	batch int
	rows  [][]any
}

// NewCH creates the table if needed and returns the sink.
// batch <= 0 uses DefaultCHBatch
func NewCH(ctx context.Context, db store.Clickhouse, batch int) (*CH, error) {
	if batch <= 0 {
		batch = DefaultCHBatch
	}
	if err := db.Exec(ctx, chSchema); err != nil {
		return nil, perr.WithOp(perr.Wrap(err, perr.ErrorCodeDB, "create fingerprints table"), "repo.ch.schema")
	}
	return &CH{db: db, batch: batch}, nil
}

// Name identifies the sink in logs and metrics
func (c *CH) Name() string { return "clickhouse" }

// Write buffers one record and flushes when the batch is full
func (c *CH) Write(ctx context.Context, r domain.Record) error {
	c.rows = append(c.rows, []any{
		r.RunID, r.Location, r.RepositoryName, string(r.Provider), r.Scope,
		r.SHA, r.Private, r.Fork, r.Archived, r.FingerprintedAt,
	})
	if len(c.rows) < c.batch {
		return nil
	}
	return c.flush(ctx)
}

// Close sends whatever is still buffered
func (c *CH) Close(ctx context.Context) error { return c.flush(ctx) }

func (c *CH) flush(ctx context.Context) error {
	if len(c.rows) == 0 {
		return nil
	}
	n := len(c.rows)
	err := c.db.Insert(ctx, chTable, c.rows)
	c.rows = c.rows[:0]
	if err != nil {
		return perr.WithOp(perr.Wrapf(err, perr.ErrorCodeDB, "insert %d rows", n), "repo.ch.flush")
	}
	return nil
}
