package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/feedclient/internal/storage"
)

// newTestDB returns an in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// =========================================================================
// GET / SET / DELETE
// =========================================================================

func TestSetThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "user", `{"userId":1,"username":"kim"}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := db.Get(ctx, "user")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != `{"userId":1,"username":"kim"}` {
		t.Errorf("Get() = %q", got)
	}
}

func TestGet_Missing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want storage.ErrNotFound", err)
	}
}

func TestSet_ReplacesValue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_ = db.Set(ctx, "tokens", "first")
	if err := db.Set(ctx, "tokens", "second"); err != nil {
		t.Fatalf("Set() second error = %v", err)
	}

	got, _ := db.Get(ctx, "tokens")
	if got != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}
}

func TestDelete_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_ = db.Set(ctx, "user", "x")
	if err := db.Delete(ctx, "user"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := db.Delete(ctx, "user"); err != nil {
		t.Fatalf("Delete() on missing key error = %v", err)
	}
	if _, err := db.Get(ctx, "user"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DURABILITY
// =========================================================================

func TestFileDatabase_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedcli.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Set(ctx, "user", "kept"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "user")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != "kept" {
		t.Errorf("Get() = %q, want %q", got, "kept")
	}
}
