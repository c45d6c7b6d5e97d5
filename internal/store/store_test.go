package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/HerbHall/fillwatch/pkg/plugin"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTable(name string) plugin.Migration {
	return plugin.Migration{
		Version:     1,
		Description: "create " + name,
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE " + name + " (id INTEGER PRIMARY KEY)")
			return err
		},
	}
}

func tableExists(t *testing.T, s *SQLiteStore, name string) bool {
	t.Helper()
	var n int
	err := s.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n > 0
}

func TestNew_invalid_path(t *testing.T) {
	if _, err := New("/nonexistent/path/to/db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestNew_memory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	defer s.Close()
	if err := s.DB().Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestTx_rollback(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if _, err := s.DB().ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx() error = %v, want %v", err, boom)
	}

	var n int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}

func TestMigrate_skips_applied(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	calls := 0
	m := createTable("items")
	up := m.Up
	m.Up = func(tx *sql.Tx) error {
		calls++
		return up(tx)
	}

	for i := 0; i < 2; i++ {
		if err := s.Migrate(ctx, "spc", []plugin.Migration{m}); err != nil {
			t.Fatalf("Migrate() run %d: %v", i+1, err)
		}
	}
	if calls != 1 {
		t.Errorf("migration ran %d times, want 1", calls)
	}
	if !tableExists(t, s, "items") {
		t.Error("table items was not created")
	}
}

func TestMigrate_plugins_isolated(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if err := s.Migrate(ctx, "alpha", []plugin.Migration{createTable("alpha_items")}); err != nil {
		t.Fatalf("Migrate(alpha): %v", err)
	}
	if err := s.Migrate(ctx, "beta", []plugin.Migration{createTable("beta_items")}); err != nil {
		t.Fatalf("Migrate(beta): %v", err)
	}
	if !tableExists(t, s, "beta_items") {
		t.Error("version 1 of beta was skipped because alpha applied version 1")
	}
}

func TestMigrate_failure_rolls_back(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	bad := plugin.Migration{
		Version:     1,
		Description: "half applied",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec("CREATE TABLE partial (id INTEGER)"); err != nil {
				return err
			}
			_, err := tx.Exec("NOT VALID SQL")
			return err
		},
	}
	if err := s.Migrate(ctx, "spc", []plugin.Migration{bad}); err == nil {
		t.Fatal("expected migration error, got nil")
	}
	if tableExists(t, s, "partial") {
		t.Error("failed migration left table behind")
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		current string
		wantErr error
	}{
		{name: "same version", stored: "v0.2.0", current: "v0.2.0"},
		{name: "newer binary", stored: "0.1.0", current: "0.2.0"},
		{name: "older binary rejected", stored: "v0.3.0", current: "v0.2.0", wantErr: ErrNewerSchema},
		{name: "dev binary passes", stored: "v9.0.0", current: "dev"},
		{name: "dev database passes", stored: "dev", current: "v0.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tempDB(t)
			ctx := context.Background()

			if err := s.CheckVersion(ctx, tt.stored); err != nil {
				t.Fatalf("first CheckVersion(%q): %v", tt.stored, err)
			}
			err := s.CheckVersion(ctx, tt.current)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CheckVersion(%q) error = %v, want %v", tt.current, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckVersion(%q) error = %v", tt.current, err)
			}

			var got string
			if err := s.DB().QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&got); err != nil {
				t.Fatalf("read stored version: %v", err)
			}
			if got != tt.current {
				t.Errorf("stored version = %q, want %q", got, tt.current)
			}
		})
	}
}
