// Package stats groups measurements by batch, computes per-batch control
// statistics, and joins them back onto every measurement.
package stats

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/HerbHall/fillwatch/pkg/spc"
)

const (
	// MinSamples is the smallest batch with a defined standard deviation.
	MinSamples = 2

	// SigmaMultiplier scales the standard deviation into control thresholds.
	SigmaMultiplier = 3.0
)

// ErrIntegrityFault is returned when a measurement references a batch that
// has no statistics entry.
var ErrIntegrityFault = errors.New("measurement references batch without statistics")

// Table maps batch identifier to its statistics. It is a snapshot of one
// load and must be treated as read-only.
type Table map[string]spc.BatchStatistics

// Compute groups measurements by batch and summarizes each group. All
// measurements are used regardless of mode.
func Compute(ms []spc.Measurement) Table {
	groups := make(map[string][]float64)
	for i := range ms {
		groups[ms[i].Batch] = append(groups[ms[i].Batch], ms[i].Value)
	}

	t := make(Table, len(groups))
	for batch, values := range groups {
		t[batch] = Summarize(batch, values)
	}
	return t
}

// Summarize computes mean, median, and sample standard deviation for one
// batch. Batches smaller than MinSamples get no standard deviation and no
// sigma thresholds.
func Summarize(batch string, values []float64) spc.BatchStatistics {
	s := spc.BatchStatistics{
		Batch:  batch,
		Count:  len(values),
		Median: median(values),
	}
	if len(values) == 0 {
		return s
	}
	if len(values) < MinSamples {
		s.Mean = stat.Mean(values, nil)
		return s
	}

	mean, std := stat.MeanStdDev(values, nil)
	plus := mean + SigmaMultiplier*std
	minus := mean - SigmaMultiplier*std
	s.Mean = mean
	s.StdDev = &std
	s.SigmaPlus = &plus
	s.SigmaMinus = &minus
	return s
}

// median returns the middle value, averaging the two middle values for
// even-sized input.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Annotate attaches each measurement's batch mean and sigma thresholds.
// A measurement whose batch is missing from t fails the whole call.
func Annotate(ms []spc.Measurement, t Table) ([]spc.AnnotatedMeasurement, error) {
	out := make([]spc.AnnotatedMeasurement, len(ms))
	for i := range ms {
		s, ok := t[ms[i].Batch]
		if !ok {
			return nil, fmt.Errorf("%w: measurement %q batch %q", ErrIntegrityFault, ms[i].ID, ms[i].Batch)
		}
		out[i] = spc.AnnotatedMeasurement{
			Measurement: ms[i],
			Mean:        s.Mean,
			SigmaPlus:   clone(s.SigmaPlus),
			SigmaMinus:  clone(s.SigmaMinus),
		}
	}
	return out, nil
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
