// Package spc provides public types for FillWatch statistical process control:
// measurements, per-batch control statistics, Nelson rule identifiers, and
// evaluation results.
package spc

import "time"

// Limits are the externally supplied alarm and warning limits carried by
// every measurement. They are policy values, independent of statistics.
type Limits struct {
	LowerAlarm   float64 `json:"lower_alarm"`
	LowerWarning float64 `json:"lower_warning"`
	UpperWarning float64 `json:"upper_warning"`
	UpperAlarm   float64 `json:"upper_alarm"`
}

// Measurement is a single process reading (e.g. one fill weight).
type Measurement struct {
	ID        string    `json:"id"`
	Batch     string    `json:"batch"`
	Timestamp time.Time `json:"timestamp"`
	Index     int       `json:"index"` // Ordinal within the filtered view
	Value     float64   `json:"value"`
	Limits    Limits    `json:"limits"`
	Mode      string    `json:"mode"` // IPC mode tag, used only for filtering
}

// BatchStatistics summarizes one batch. StdDev and the sigma thresholds are
// nil when the batch has fewer than two measurements.
type BatchStatistics struct {
	Batch      string   `json:"batch"`
	Count      int      `json:"count"`
	Mean       float64  `json:"mean"`
	Median     float64  `json:"median"`
	StdDev     *float64 `json:"std_dev"`
	SigmaPlus  *float64 `json:"sigma_plus"`  // mean + 3 stdev
	SigmaMinus *float64 `json:"sigma_minus"` // mean - 3 stdev
}

// Sigma returns the three-sigma thresholds and whether they are defined.
func (b BatchStatistics) Sigma() (plus, minus float64, ok bool) {
	return sigma(b.SigmaPlus, b.SigmaMinus)
}

// AnnotatedMeasurement is a measurement joined with its batch's mean and
// three-sigma thresholds.
type AnnotatedMeasurement struct {
	Measurement
	Mean       float64  `json:"mean"`
	SigmaPlus  *float64 `json:"sigma_plus"`
	SigmaMinus *float64 `json:"sigma_minus"`
}

// Sigma returns the row's three-sigma thresholds and whether they are defined.
func (a AnnotatedMeasurement) Sigma() (plus, minus float64, ok bool) {
	return sigma(a.SigmaPlus, a.SigmaMinus)
}

func sigma(plus, minus *float64) (float64, float64, bool) {
	if plus == nil || minus == nil {
		return 0, 0, false
	}
	return *plus, *minus, true
}

// Direction describes which side or trend caused a flag.
type Direction string

// Flag directions.
const (
	DirectionAbove      Direction = "above"
	DirectionBelow      Direction = "below"
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
)

// FlaggedPoint is one flag event raised by a rule. Window is the position of
// the first point of the triggering window; for NR1 it equals Index.
type FlaggedPoint struct {
	Rule          Rule      `json:"rule"`
	Index         int       `json:"index"`
	MeasurementID string    `json:"measurement_id"`
	Timestamp     time.Time `json:"timestamp"`
	Value         float64   `json:"value"`
	Window        int       `json:"window"`
	Direction     Direction `json:"direction"`
}

// Result holds the flags produced by each evaluated rule, in the order the
// rules were evaluated. Flags are raw events and are not deduplicated.
type Result struct {
	Rules []Rule                  `json:"rules"`
	Flags map[Rule][]FlaggedPoint `json:"flags"`
}

// Count returns the number of flag events raised by rule.
func (r Result) Count(rule Rule) int {
	return len(r.Flags[rule])
}

// Total returns the number of flag events across all rules.
func (r Result) Total() int {
	n := 0
	for _, flags := range r.Flags {
		n += len(flags)
	}
	return n
}

// Chart is everything needed to render one control chart: the selected
// batch and mode, the batch statistics, the annotated series, and the
// evaluation result.
type Chart struct {
	Batch      string                 `json:"batch"`
	Mode       string                 `json:"mode"`
	Statistics BatchStatistics        `json:"statistics"`
	Series     []AnnotatedMeasurement `json:"series"`
	Result     Result                 `json:"result"`
}
