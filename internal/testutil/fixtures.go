package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/fillwatch/pkg/spc"
)

// BaseTime is the timestamp of the first point produced by Series.
var BaseTime = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// DefaultLimits are fixed alarm/warning limits for a nominal 100 g fill.
var DefaultLimits = spc.Limits{
	LowerAlarm:   90,
	LowerWarning: 95,
	UpperWarning: 105,
	UpperAlarm:   110,
}

// NewMeasurement returns a Measurement with sensible defaults, suitable for
// test fixtures. Override individual fields with options.
func NewMeasurement(opts ...func(*spc.Measurement)) spc.Measurement {
	m := spc.Measurement{
		ID:        uuid.New().String(),
		Batch:     "B-001",
		Timestamp: BaseTime,
		Value:     100,
		Limits:    DefaultLimits,
		Mode:      "Production",
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// WithBatch sets the batch identifier.
func WithBatch(batch string) func(*spc.Measurement) {
	return func(m *spc.Measurement) { m.Batch = batch }
}

// WithValue sets the measured value.
func WithValue(v float64) func(*spc.Measurement) {
	return func(m *spc.Measurement) { m.Value = v }
}

// WithMode sets the IPC mode tag.
func WithMode(mode string) func(*spc.Measurement) {
	return func(m *spc.Measurement) { m.Mode = mode }
}

// WithTimestamp sets the measurement time.
func WithTimestamp(ts time.Time) func(*spc.Measurement) {
	return func(m *spc.Measurement) { m.Timestamp = ts }
}

// Series returns one measurement per value for a batch and mode, one minute
// apart starting at start.
func Series(batch, mode string, start time.Time, values ...float64) []spc.Measurement {
	out := make([]spc.Measurement, len(values))
	for i, v := range values {
		out[i] = NewMeasurement(
			WithBatch(batch),
			WithMode(mode),
			WithValue(v),
			WithTimestamp(start.Add(time.Duration(i)*time.Minute)),
		)
	}
	return out
}

// Annotated wraps values as an annotated sequence sharing one mean and,
// when sigma is non-nil, the thresholds mean ± 3·sigma.
func Annotated(mean float64, sigma *float64, values ...float64) []spc.AnnotatedMeasurement {
	var plus, minus *float64
	if sigma != nil {
		p, m := mean+3*(*sigma), mean-3*(*sigma)
		plus, minus = &p, &m
	}
	ms := Series("B-001", "Production", BaseTime, values...)
	out := make([]spc.AnnotatedMeasurement, len(ms))
	for i := range ms {
		ms[i].Index = i
		out[i] = spc.AnnotatedMeasurement{
			Measurement: ms[i],
			Mean:        mean,
			SigmaPlus:   plus,
			SigmaMinus:  minus,
		}
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
