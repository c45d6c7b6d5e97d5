package spc

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/fillwatch/pkg/plugin"
	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Workbook column headers.
const (
	colBatch        = "Batch Number"
	colLowerAlarm   = "Lower Alarm"
	colLowerWarning = "Lower Warning"
	colUpperWarning = "Upper Warning"
	colUpperAlarm   = "Upper Alarm"
	colFillWeight   = "Fill Weight (g)"
	colMeasuredAt   = "Measurement date-time"
	colID           = "Measurement ID"
	colMode         = "IPC Mode"
)

var requiredColumns = []string{
	colBatch, colLowerAlarm, colLowerWarning, colUpperWarning,
	colUpperAlarm, colFillWeight, colMeasuredAt,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

// ReadWorkbook parses measurements from an .xlsx workbook. sheet defaults
// to the first sheet. Blank measurement IDs are replaced with UUIDs, and
// fully blank rows are skipped.
func ReadWorkbook(r io.Reader, sheet string) ([]pkgspc.Measurement, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("sheet %q: missing column %q", sheet, name)
		}
	}

	var out []pkgspc.Measurement
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		m, err := parseRow(row, cols)
		if err != nil {
			// Row numbers match the spreadsheet, header included.
			return nil, fmt.Errorf("sheet %q row %d: %w", sheet, i+2, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func parseRow(row []string, cols map[string]int) (pkgspc.Measurement, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	number := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(cell(name), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("column %q: invalid number %q", name, cell(name))
		}
		return v, nil
	}

	m := pkgspc.Measurement{
		ID:    cell(colID),
		Batch: cell(colBatch),
		Mode:  cell(colMode),
	}
	if m.Batch == "" {
		return m, fmt.Errorf("column %q is empty", colBatch)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	var err error
	if m.Value, err = number(colFillWeight); err != nil {
		return m, err
	}
	if m.Limits.LowerAlarm, err = number(colLowerAlarm); err != nil {
		return m, err
	}
	if m.Limits.LowerWarning, err = number(colLowerWarning); err != nil {
		return m, err
	}
	if m.Limits.UpperWarning, err = number(colUpperWarning); err != nil {
		return m, err
	}
	if m.Limits.UpperAlarm, err = number(colUpperAlarm); err != nil {
		return m, err
	}
	if m.Timestamp, err = parseTimestamp(cell(colMeasuredAt)); err != nil {
		return m, fmt.Errorf("column %q: %w", colMeasuredAt, err)
	}
	return m, nil
}

// parseTimestamp accepts the text layouts above or an Excel serial date.
// Text without a zone is read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial date %q: %w", s, err)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// InsertMeasurements writes ms into table in one transaction, replacing
// rows with the same measurement ID. It returns the number written.
func InsertMeasurements(ctx context.Context, st plugin.Store, table string, ms []pkgspc.Measurement) (int, error) {
	if !identPattern.MatchString(table) {
		return 0, fmt.Errorf("table %q is not a plain SQL identifier", table)
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (
		measurement_id, batch_number, measured_at, fill_weight,
		lower_alarm, lower_warning, upper_warning, upper_alarm, ipc_mode
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	err := st.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range ms {
			mode := sql.NullString{String: m.Mode, Valid: m.Mode != ""}
			if _, err := stmt.ExecContext(ctx,
				m.ID, m.Batch, m.Timestamp.UTC(), m.Value,
				m.Limits.LowerAlarm, m.Limits.LowerWarning,
				m.Limits.UpperWarning, m.Limits.UpperAlarm,
				mode,
			); err != nil {
				return fmt.Errorf("insert measurement %s: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ms), nil
}
