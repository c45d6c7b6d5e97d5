package nelson

import "github.com/HerbHall/fillwatch/pkg/spc"

// Evaluate runs each enabled rule over seq and collects the flags per rule.
// Each rule keeps its own output; nothing is deduplicated across rules. An
// empty set yields a result with no rules and no flags.
func Evaluate(seq []spc.AnnotatedMeasurement, enabled spc.RuleSet) spc.Result {
	res := spc.Result{
		Rules: []spc.Rule{},
		Flags: make(map[spc.Rule][]spc.FlaggedPoint),
	}
	for _, r := range enabled.Rules() {
		eval, ok := EvaluatorFor(r)
		if !ok {
			continue
		}
		flags := eval(seq)
		if flags == nil {
			flags = []spc.FlaggedPoint{}
		}
		res.Rules = append(res.Rules, r)
		res.Flags[r] = flags
	}
	return res
}
