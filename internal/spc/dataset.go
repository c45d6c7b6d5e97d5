package spc

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/HerbHall/fillwatch/internal/spc/nelson"
	"github.com/HerbHall/fillwatch/internal/spc/stats"
	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
)

var (
	// ErrUnknownBatch is returned when a selection names a batch that has
	// no measurements.
	ErrUnknownBatch = errors.New("unknown batch")
	// ErrMissingMode is returned when a selection uses a missing-mode
	// sentinel such as "nan".
	ErrMissingMode = errors.New("missing IPC mode is not selectable")
	// ErrNotLoaded is returned before the first successful load.
	ErrNotLoaded = errors.New("no dataset loaded")
)

// Dataset is an immutable snapshot of annotated measurements with their
// per-batch statistics.
type Dataset struct {
	rows     []pkgspc.AnnotatedMeasurement
	table    stats.Table
	batches  []string
	modes    []string
	missing  map[string]bool
	loadedAt time.Time
}

// NewDataset orders ms by timestamp (stable), computes batch statistics,
// and annotates every row. Modes listed in missingModes are excluded from
// the selectable modes. ms is not modified.
func NewDataset(ms []pkgspc.Measurement, missingModes []string) (*Dataset, error) {
	sorted := slices.Clone(ms)
	slices.SortStableFunc(sorted, func(a, b pkgspc.Measurement) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	table := stats.Compute(sorted)
	rows, err := stats.Annotate(sorted, table)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		rows:     rows,
		table:    table,
		missing:  make(map[string]bool, len(missingModes)),
		loadedAt: time.Now().UTC(),
	}
	for _, m := range missingModes {
		d.missing[m] = true
	}

	seen := make(map[string]bool)
	for _, r := range rows {
		if d.missing[r.Mode] || seen[r.Mode] {
			continue
		}
		seen[r.Mode] = true
		d.modes = append(d.modes, r.Mode)
	}
	for batch := range table {
		d.batches = append(d.batches, batch)
	}
	slices.Sort(d.batches)
	return d, nil
}

// Len returns the number of measurements.
func (d *Dataset) Len() int { return len(d.rows) }

// LoadedAt returns when the snapshot was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Batches returns batch identifiers in ascending order.
func (d *Dataset) Batches() []string { return slices.Clone(d.batches) }

// Modes returns selectable IPC modes in order of first appearance.
func (d *Dataset) Modes() []string { return slices.Clone(d.modes) }

// IsMissingMode reports whether mode is a missing-mode sentinel.
func (d *Dataset) IsMissingMode(mode string) bool { return d.missing[mode] }

// Statistics returns one batch's statistics.
func (d *Dataset) Statistics(batch string) (pkgspc.BatchStatistics, error) {
	s, ok := d.table[batch]
	if !ok {
		return pkgspc.BatchStatistics{}, fmt.Errorf("%w: %q", ErrUnknownBatch, batch)
	}
	return s, nil
}

// AllStatistics returns statistics for every batch ordered by batch.
func (d *Dataset) AllStatistics() []pkgspc.BatchStatistics {
	out := make([]pkgspc.BatchStatistics, 0, len(d.table))
	for _, s := range d.table {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b pkgspc.BatchStatistics) int { return cmp.Compare(a.Batch, b.Batch) })
	return out
}

// Select returns the rows for batch and mode in dataset order, with Index
// set to the ordinal within the selection. An unknown mode yields an empty
// selection.
func (d *Dataset) Select(batch, mode string) ([]pkgspc.AnnotatedMeasurement, error) {
	if _, ok := d.table[batch]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBatch, batch)
	}
	if d.IsMissingMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrMissingMode, mode)
	}

	out := []pkgspc.AnnotatedMeasurement{}
	for _, r := range d.rows {
		if r.Batch != batch || r.Mode != mode {
			continue
		}
		r.Index = len(out)
		out = append(out, r)
	}
	return out, nil
}

// Chart selects batch and mode and evaluates rules over the selection.
func (d *Dataset) Chart(batch, mode string, rules pkgspc.RuleSet) (pkgspc.Chart, error) {
	series, err := d.Select(batch, mode)
	if err != nil {
		return pkgspc.Chart{}, err
	}
	return pkgspc.Chart{
		Batch:      batch,
		Mode:       mode,
		Statistics: d.table[batch],
		Series:     series,
		Result:     nelson.Evaluate(series, rules),
	}, nil
}
