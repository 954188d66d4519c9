package recordstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestFetchPendingAdapterClaimsRow(t *testing.T) {
	store, mock := newTestStore(t)
	rows := sqlmock.NewRows([]string{"id", "source_url", "status"}).
		AddRow("item-1", "https://example.com/p/1", "claimed")
	mock.ExpectQuery("UPDATE items SET status = 'claimed'").WillReturnRows(rows)

	res := store.FetchPendingAdapter().Invoke(context.Background(), adapter.Input{})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	item, ok := res.Outputs[registry.KeyItem].(Item)
	if !ok || item.ID != "item-1" {
		t.Fatalf("KeyItem = %+v", res.Outputs[registry.KeyItem])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFetchPendingAdapterNoRowsIsPermanent(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery("UPDATE items SET status = 'claimed'").WillReturnError(sql.ErrNoRows)

	res := store.FetchPendingAdapter().Invoke(context.Background(), adapter.Input{})
	if res.Err == nil || res.Err.Kind != phase.Permanent {
		t.Fatalf("expected Permanent error, got %+v", res.Err)
	}
}

func TestPatchAdapterUpdatesStatus(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("UPDATE items SET status").
		WithArgs("published", "item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res := store.PatchAdapter().Invoke(context.Background(), adapter.Input{
		registry.KeyItem:          Item{ID: "item-1", Status: "claimed"},
		registry.KeyStatusUpdated: "published",
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Outputs[registry.KeyPersisted] != true {
		t.Fatalf("KeyPersisted = %v, want true", res.Outputs[registry.KeyPersisted])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPatchAdapterMissingItemIsPermanent(t *testing.T) {
	store, _ := newTestStore(t)
	res := store.PatchAdapter().Invoke(context.Background(), adapter.Input{})
	if res.Err == nil || res.Err.Kind != phase.Permanent {
		t.Fatalf("expected Permanent error, got %+v", res.Err)
	}
}
