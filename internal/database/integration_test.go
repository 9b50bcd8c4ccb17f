package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"parents", "parent_children", "parent_partners", "schools", "children", "child_progress", "system_logs", "topics"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Migrations are idempotent
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := "INSERT INTO parents (id, name, email, password, max_children, verified, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, insert, "p1", "Pat", "pat@example.com", "x", 1, false, now, now)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	sentinel := errors.New("abort")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, insert, "p2", "Sam", "sam@example.com", "x", 1, false, now, now); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx error = %v, want sentinel", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parents").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 parent after rollback, got %d", count)
	}
}

func TestUniqueViolationDetected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := "INSERT INTO parents (id, name, email, password, max_children, verified, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := db.ExecContext(ctx, insert, "p1", "Pat", "pat@example.com", "x", 1, false, now, now); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := db.ExecContext(ctx, insert, "p2", "Pat Again", "pat@example.com", "x", 1, false, now, now)
	if !db.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}
