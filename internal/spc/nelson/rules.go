// Package nelson evaluates Nelson rules over an ordered, single-batch,
// single-mode sequence of annotated measurements.
package nelson

import "github.com/HerbHall/fillwatch/pkg/spc"

const (
	// RunLength is the number of consecutive points NR2 requires on one
	// side of the mean.
	RunLength = 9

	// TrendLength is the number of consecutive points NR3 requires to be
	// strictly increasing or decreasing.
	TrendLength = 6
)

// Evaluator runs one rule over a sequence and returns its flag events.
// Evaluators never modify the sequence.
type Evaluator func(seq []spc.AnnotatedMeasurement) []spc.FlaggedPoint

// RuleInfo describes a rule for API consumers.
type RuleInfo struct {
	ID          spc.Rule `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

type ruleDef struct {
	info RuleInfo
	eval Evaluator
}

var rules = map[spc.Rule]ruleDef{
	spc.RuleNR1: {
		info: RuleInfo{
			ID:          spc.RuleNR1,
			Name:        "Nelson Rule 1",
			Description: "One point at or beyond three standard deviations from the batch mean.",
		},
		eval: BeyondThreeSigma,
	},
	spc.RuleNR2: {
		info: RuleInfo{
			ID:          spc.RuleNR2,
			Name:        "Nelson Rule 2",
			Description: "Nine consecutive points strictly on the same side of the batch mean.",
		},
		eval: RunAboutMean,
	},
	spc.RuleNR3: {
		info: RuleInfo{
			ID:          spc.RuleNR3,
			Name:        "Nelson Rule 3",
			Description: "Six consecutive points strictly increasing or strictly decreasing.",
		},
		eval: MonotonicTrend,
	},
}

// Catalogue returns every supported rule in canonical order.
func Catalogue() []RuleInfo {
	all := spc.AllRules()
	out := make([]RuleInfo, 0, len(all))
	for _, r := range all {
		out = append(out, rules[r].info)
	}
	return out
}

// EvaluatorFor returns the evaluator for r.
func EvaluatorFor(r spc.Rule) (Evaluator, bool) {
	def, ok := rules[r]
	return def.eval, ok
}

// BeyondThreeSigma implements NR1. Each point is flagged when its value is
// at or above its sigma-plus threshold, or at or below its sigma-minus
// threshold. Points without defined thresholds never trigger.
func BeyondThreeSigma(seq []spc.AnnotatedMeasurement) []spc.FlaggedPoint {
	var flags []spc.FlaggedPoint
	for i := range seq {
		plus, minus, ok := seq[i].Sigma()
		if !ok {
			continue
		}
		switch v := seq[i].Value; {
		case v >= plus:
			flags = append(flags, flag(spc.RuleNR1, seq, i, i, spc.DirectionAbove))
		case v <= minus:
			flags = append(flags, flag(spc.RuleNR1, seq, i, i, spc.DirectionBelow))
		}
	}
	return flags
}

// RunAboutMean implements NR2. Every 9-point window whose points all lie
// strictly above, or all strictly below, the mean of the window's first
// point has all nine points flagged. Overlapping windows flag again.
func RunAboutMean(seq []spc.AnnotatedMeasurement) []spc.FlaggedPoint {
	var flags []spc.FlaggedPoint
	for _, w := range Windows(len(seq), RunLength) {
		dir := sideOfMean(seq[w.Start:w.End()])
		if dir == "" {
			continue
		}
		flags = appendWindow(flags, spc.RuleNR2, seq, w, dir)
	}
	return flags
}

// MonotonicTrend implements NR3. Every 6-point window whose values strictly
// increase, or strictly decrease, across all adjacent pairs has all six
// points flagged. Overlapping windows flag again.
func MonotonicTrend(seq []spc.AnnotatedMeasurement) []spc.FlaggedPoint {
	var flags []spc.FlaggedPoint
	for _, w := range Windows(len(seq), TrendLength) {
		dir := trend(seq[w.Start:w.End()])
		if dir == "" {
			continue
		}
		flags = appendWindow(flags, spc.RuleNR3, seq, w, dir)
	}
	return flags
}

// sideOfMean compares every point in the window against the first point's
// mean. NaN values never satisfy a strict comparison.
func sideOfMean(points []spc.AnnotatedMeasurement) spc.Direction {
	basis := points[0].Mean
	above, below := true, true
	for i := range points {
		if !(points[i].Value > basis) {
			above = false
		}
		if !(points[i].Value < basis) {
			below = false
		}
	}
	switch {
	case above:
		return spc.DirectionAbove
	case below:
		return spc.DirectionBelow
	}
	return ""
}

// trend compares adjacent pairs inside the window only.
func trend(points []spc.AnnotatedMeasurement) spc.Direction {
	increasing, decreasing := true, true
	for k := 0; k+1 < len(points); k++ {
		if !(points[k].Value < points[k+1].Value) {
			increasing = false
		}
		if !(points[k].Value > points[k+1].Value) {
			decreasing = false
		}
	}
	switch {
	case increasing:
		return spc.DirectionIncreasing
	case decreasing:
		return spc.DirectionDecreasing
	}
	return ""
}

func appendWindow(flags []spc.FlaggedPoint, rule spc.Rule, seq []spc.AnnotatedMeasurement, w Window, dir spc.Direction) []spc.FlaggedPoint {
	for i := w.Start; i < w.End(); i++ {
		flags = append(flags, flag(rule, seq, i, w.Start, dir))
	}
	return flags
}

func flag(rule spc.Rule, seq []spc.AnnotatedMeasurement, i, window int, dir spc.Direction) spc.FlaggedPoint {
	return spc.FlaggedPoint{
		Rule:          rule,
		Index:         i,
		MeasurementID: seq[i].ID,
		Timestamp:     seq[i].Timestamp,
		Value:         seq[i].Value,
		Window:        window,
		Direction:     dir,
	}
}
