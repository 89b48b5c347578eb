//go:build integration_pg

package pg

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres gives generous timeouts for the first image pull
func startPostgres(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
}

func TestOpen_UpsertFingerprints_Integration(t *testing.T) {
	dsn := startPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	WithTestDB(t, Config{URL: dsn, AppName: "srcfp-integration"}, func(pc *pgxpool.Config) {
		pc.MinConns = 1
	}, func(p *PG) {
		conn := AcquireConn(t, p, ctx)

		if _, err := conn.Exec(ctx, `create temporary table fp (name text primary key, sha text not null)`); err != nil {
			t.Fatalf("create temp table failed: %v", err)
		}

		batch := &pgx.Batch{}
		upsert := `insert into fp (name, sha) values ($1, $2) on conflict (name) do update set sha = excluded.sha`
		batch.Queue(upsert, "alpha", "aaa")
		batch.Queue(upsert, "alpha", "bbb")
		br := conn.SendBatch(ctx, batch)
		for range 2 {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				t.Fatalf("upsert failed: %v", err)
			}
		}
		if err := br.Close(); err != nil {
			t.Fatalf("batch close: %v", err)
		}

		type row struct {
			Name string
			SHA  string
		}
		rows, err := conn.Query(ctx, `select name, sha from fp order by name`)
		if err != nil {
			t.Fatalf("query rows: %v", err)
		}
		got, err := pgx.CollectRows(rows, pgx.RowToStructByPos[row])
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 1 || got[0].SHA != "bbb" {
			t.Fatalf("unexpected rows: %#v", got)
		}

		var gotApp string
		if err := conn.QueryRow(ctx, `select current_setting('application_name')`).Scan(&gotApp); err != nil {
			t.Fatalf("check app name: %v", err)
		}
		if gotApp != "srcfp-integration" {
			t.Fatalf("application_name mismatch: got %q", gotApp)
		}
	})
}
