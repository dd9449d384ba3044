package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

// newTestDB opens a migrated database in a temp directory.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "valid path",
			path:    dbPath,
			wantErr: false,
		},
		{
			name:    "invalid path",
			path:    "/invalid/path/to/db.db",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(tt.path)

			if tt.wantErr {
				if err == nil {
					t.Errorf("New() expected error, got nil")
				}
				if db != nil {
					_ = db.Close()
				}
				return
			}

			if err != nil {
				t.Errorf("New() unexpected error: %v", err)
				return
			}

			if db == nil {
				t.Fatal("New() returned nil database")
			}

			var fk int
			if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
				t.Fatalf("PRAGMA foreign_keys error = %v", err)
			}
			if fk != 1 {
				t.Errorf("foreign_keys = %d, want 1", fk)
			}

			_ = db.Close()
		})
	}
}

func TestMigrate(t *testing.T) {
	db := newTestDB(t)

	// Running migrations again must be a no-op
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	for _, table := range []string{"documents", "chunks", "query_log"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}
}

func TestWithTx(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sentinel := errors.New("abort")

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO query_log (id, query_text, results_count, created_at) VALUES ('q1', 'x', 0, CURRENT_TIMESTAMP)"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx() error = %v, want sentinel", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM query_log").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rolled back transaction left %d rows", n)
	}

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO query_log (id, query_text, results_count, created_at) VALUES ('q2', 'x', 0, CURRENT_TIMESTAMP)")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM query_log").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("committed transaction has %d rows, want 1", n)
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := storeErr("insert document", cause)

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("storeErr() = %T, want *StoreError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("StoreError should unwrap to its cause")
	}
	if err.Error() != "failed to insert document: disk I/O error" {
		t.Errorf("Error() = %q", err.Error())
	}

	if storeErr("x", nil) != nil {
		t.Error("storeErr(nil) should be nil")
	}
	if storeErr("x", ErrNotFound) != ErrNotFound {
		t.Error("storeErr(ErrNotFound) should pass through")
	}
}
