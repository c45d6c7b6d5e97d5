package spc

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HerbHall/fillwatch/pkg/plugin"
)

// migrations creates the measurement table in the local database. table
// must already be validated as an identifier.
func migrations(table string) []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create measurement table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
						measurement_id TEXT     PRIMARY KEY,
						batch_number   TEXT     NOT NULL,
						measured_at    DATETIME NOT NULL,
						fill_weight    REAL     NOT NULL,
						lower_alarm    REAL     NOT NULL,
						lower_warning  REAL     NOT NULL,
						upper_warning  REAL     NOT NULL,
						upper_alarm    REAL     NOT NULL,
						ipc_mode       TEXT
					)`, table),
					fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_measured_at ON %s(measured_at)`, table, table),
					fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_batch ON %s(batch_number)`, table, table),
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// EnsureTable creates table in st if it does not exist yet. Each table
// tracks its own migration history.
func EnsureTable(ctx context.Context, st plugin.Store, table string) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("table %q is not a plain SQL identifier", table)
	}
	return st.Migrate(ctx, "spc."+table, migrations(table))
}
