package spc

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HerbHall/fillwatch/pkg/plugin"
	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver for external sqlite sources
)

// Source loads the full measurement set.
type Source interface {
	LoadMeasurements(ctx context.Context) ([]pkgspc.Measurement, error)
}

// SQLSource reads measurements from one table of a SQL database.
type SQLSource struct {
	db    *sql.DB
	query string
}

// NewSQLSource returns a source over table, which must be a plain
// identifier.
func NewSQLSource(db *sql.DB, table string) (*SQLSource, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("table %q is not a plain SQL identifier", table)
	}
	return &SQLSource{
		db: db,
		query: fmt.Sprintf(`SELECT measurement_id, batch_number, measured_at, fill_weight,
			lower_alarm, lower_warning, upper_warning, upper_alarm, ipc_mode
		FROM %s ORDER BY measured_at, measurement_id`, table),
	}, nil
}

// LoadMeasurements implements Source. A NULL ipc_mode loads as "".
func (s *SQLSource) LoadMeasurements(ctx context.Context) ([]pkgspc.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var out []pkgspc.Measurement
	for rows.Next() {
		var (
			m    pkgspc.Measurement
			mode sql.NullString
		)
		if err := rows.Scan(
			&m.ID, &m.Batch, &m.Timestamp, &m.Value,
			&m.Limits.LowerAlarm, &m.Limits.LowerWarning,
			&m.Limits.UpperWarning, &m.Limits.UpperAlarm,
			&mode,
		); err != nil {
			return nil, fmt.Errorf("scan measurement row: %w", err)
		}
		m.Mode = mode.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return out, nil
}

// OpenSource builds the configured source. With the sqlite driver and no
// DSN it reads the local store; otherwise it opens its own connection and
// the returned close func releases it.
func OpenSource(ctx context.Context, cfg SourceConfig, local plugin.Store) (Source, func() error, error) {
	noop := func() error { return nil }

	if cfg.Driver == DriverSQLite && cfg.DSN == "" {
		if local == nil {
			return nil, noop, fmt.Errorf("sqlite source without dsn requires the local store")
		}
		src, err := NewSQLSource(local.DB(), cfg.Table)
		return src, noop, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, noop, fmt.Errorf("open %s source: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, noop, fmt.Errorf("ping %s source: %w", cfg.Driver, err)
	}
	src, err := NewSQLSource(db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, noop, err
	}
	return src, db.Close, nil
}
