// Package recordstore implements the record_store.fetch_pending and
// record_store.patch adapters against Postgres, using jackc/pgx/v5 as the
// driver and jmoiron/sqlx for struct scanning. Open runs pressly/goose/v3
// migrations from the directory it is given, before any adapter is
// invoked; an empty directory argument skips migrations.
package recordstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

// Item is the row shape fetch_pending reads and patch writes back.
type Item struct {
	ID        string `db:"id"`
	SourceURL string `db:"source_url"`
	Status    string `db:"status"`
}

// GetSourceURL lets refadapters/scrape pull the item's source URL without
// importing this package's concrete type.
func (i Item) GetSourceURL() string { return i.SourceURL }

// Store wraps a Postgres connection pool via sqlx.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and runs pending goose migrations from dir.
func Open(ctx context.Context, dsn, migrationsDir string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, apperrors.FailedTo("connect to record store database", err)
	}
	if migrationsDir != "" {
		if err := goose.SetDialect("postgres"); err != nil {
			db.Close()
			return nil, apperrors.FailedTo("set goose dialect", err)
		}
		if err := goose.Up(db.DB, migrationsDir); err != nil {
			db.Close()
			return nil, apperrors.FailedTo("run record store migrations", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// FetchPendingAdapter returns an Adapter implementing
// registry.AdapterRecordFetch: it claims the oldest row still in
// "pending" status and produces registry.KeyItem.
func (s *Store) FetchPendingAdapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		var item Item
		err := s.db.GetContext(ctx, &item, `
			UPDATE items SET status = 'claimed'
			WHERE id = (
				SELECT id FROM items WHERE status = 'pending'
				ORDER BY created_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED
			)
			RETURNING id, source_url, status`)
		if err != nil {
			kind := phase.Transient
			if err == sql.ErrNoRows {
				kind = phase.Permanent
			}
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    kind,
				Message: apperrors.AdapterError(string(registry.AdapterRecordFetch), err).Error(),
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyItem: item}}
	})
}

// PatchAdapter returns an Adapter implementing both
// registry.AdapterRecordPatch bindings (persist_products and
// update_status): it writes the status column of the item row named by
// registry.KeyItem, taking the value from registry.KeyStatusUpdated when
// present and keeping the item's current status otherwise. No other
// column is written.
func (s *Store) PatchAdapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		item, ok := in[registry.KeyItem].(Item)
		if !ok {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: "patch: missing item in input snapshot",
			}}
		}
		status := fmt.Sprintf("%v", in[registry.KeyStatusUpdated])
		if status == "" || status == "<nil>" {
			status = item.Status
		}
		_, err := s.db.ExecContext(ctx, `UPDATE items SET status = $1 WHERE id = $2`, status, item.ID)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterRecordPatch), err).Error(),
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyPersisted: true, registry.KeyStatusUpdated: true}}
	})
}
