package spc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRule is returned when a rule identifier is not NR1, NR2, or NR3.
var ErrUnknownRule = errors.New("unknown rule")

// Rule identifies one of the supported Nelson rules.
type Rule uint8

// Supported rules. The zero value is not a valid rule.
const (
	RuleNR1 Rule = iota + 1 // One point beyond three sigma
	RuleNR2                 // Nine consecutive points on one side of the mean
	RuleNR3                 // Six consecutive points steadily increasing or decreasing
)

var ruleIDs = map[Rule]string{
	RuleNR1: "NR1",
	RuleNR2: "NR2",
	RuleNR3: "NR3",
}

// AllRules returns every supported rule in canonical order.
func AllRules() []Rule {
	return []Rule{RuleNR1, RuleNR2, RuleNR3}
}

// Valid reports whether r is a supported rule.
func (r Rule) Valid() bool {
	_, ok := ruleIDs[r]
	return ok
}

func (r Rule) String() string {
	if id, ok := ruleIDs[r]; ok {
		return id
	}
	return fmt.Sprintf("Rule(%d)", uint8(r))
}

// ParseRule parses a rule identifier such as "NR2". Matching ignores case
// and surrounding whitespace.
func ParseRule(s string) (Rule, error) {
	id := strings.ToUpper(strings.TrimSpace(s))
	for r, name := range ruleIDs {
		if name == id {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRule, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rule) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRule, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rule) UnmarshalText(text []byte) error {
	parsed, err := ParseRule(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RuleSet is a set of enabled rules.
type RuleSet uint8

// NewRuleSet returns a set holding the given rules. Invalid rules are ignored.
func NewRuleSet(rules ...Rule) RuleSet {
	var s RuleSet
	for _, r := range rules {
		s = s.With(r)
	}
	return s
}

// ParseRuleSet parses rule identifiers into a set. Empty entries are skipped,
// so an empty or all-blank list yields the empty set.
func ParseRuleSet(ids []string) (RuleSet, error) {
	var s RuleSet
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		r, err := ParseRule(id)
		if err != nil {
			return 0, err
		}
		s = s.With(r)
	}
	return s, nil
}

// With returns a copy of s that also contains r.
func (s RuleSet) With(r Rule) RuleSet {
	if !r.Valid() {
		return s
	}
	return s | 1<<(r-1)
}

// Has reports whether r is in the set.
func (s RuleSet) Has(r Rule) bool {
	return r.Valid() && s&(1<<(r-1)) != 0
}

// Empty reports whether the set holds no rules.
func (s RuleSet) Empty() bool {
	return s == 0
}

// Rules returns the members of the set in canonical order.
func (s RuleSet) Rules() []Rule {
	rules := make([]Rule, 0, len(ruleIDs))
	for _, r := range AllRules() {
		if s.Has(r) {
			rules = append(rules, r)
		}
	}
	return rules
}

func (s RuleSet) String() string {
	rules := s.Rules()
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.String()
	}
	return strings.Join(ids, ",")
}
