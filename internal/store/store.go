// Package store provides the local SQLite database shared by FillWatch
// plugins, with per-plugin migrations and a schema version guard.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/HerbHall/fillwatch/pkg/plugin"
	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// ErrNewerSchema is returned when the database was written by a newer
// FillWatch release than the running binary.
var ErrNewerSchema = errors.New("database was created by a newer version of FillWatch")

// Compile-time interface guard.
var _ plugin.Store = (*SQLiteStore)(nil)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// SQLiteStore implements plugin.Store on modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex // serializes migrations
	once sync.Once
}

// New opens or creates the database at path. Use ":memory:" in tests.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection: a single writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying connection pool.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Tx runs fn in a transaction, committing when fn returns nil.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Migrate applies the plugin's migrations that have not run yet, in the
// order given. Applied versions are recorded in _migrations.
func (s *SQLiteStore) Migrate(ctx context.Context, pluginName string, migrations []plugin.Migration) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range migrations {
		var applied int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM _migrations WHERE plugin_name = ? AND version = ?",
			pluginName, m.Version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s/%d: %w", pluginName, m.Version, err)
		}
		if applied > 0 {
			continue
		}

		err = s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (plugin_name, version, description) VALUES (?, ?, ?)",
				pluginName, m.Version, m.Description,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", pluginName, m.Version, m.Description, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ensureMigrationsTable(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		_, err = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS _migrations (
				plugin_name TEXT     NOT NULL,
				version     INTEGER  NOT NULL,
				description TEXT     NOT NULL,
				applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (plugin_name, version)
			)`)
	})
	return err
}

// CheckVersion refuses to run against a database written by a newer
// release and records the running version otherwise. "dev" on either side
// always passes.
func (s *SQLiteStore) CheckVersion(ctx context.Context, current string) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _schema_meta (
			id          INTEGER  PRIMARY KEY CHECK (id = 1),
			app_version TEXT     NOT NULL,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema meta table: %w", err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO _schema_meta (id, app_version) VALUES (1, ?)", current)
		if err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("query schema version: %w", err)
	}

	if stored != "dev" && current != "dev" {
		cmp := semver.Compare(canonical(current), canonical(stored))
		if cmp < 0 {
			return fmt.Errorf("%w: database=%s, binary=%s", ErrNewerSchema, stored, current)
		}
		if cmp == 0 {
			return nil
		}
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE _schema_meta SET app_version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1", current)
	if err != nil {
		return fmt.Errorf("update schema version: %w", err)
	}
	return nil
}

// canonical adds the "v" prefix semver expects.
func canonical(v string) string {
	if v != "" && v[0] != 'v' {
		return "v" + v
	}
	return v
}
