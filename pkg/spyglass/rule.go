package spyglass

import (
	"regexp"

	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// RuleKind selects a rule's matching strategy. A kind outside the
// known set makes the rule inert: it never matches and never errors.
type RuleKind uint8

const (
	MatchPrefix RuleKind = iota
	MatchSuffix
	MatchIncludes
	MatchRegex
	MatchPredicate
)

var ruleKindNames = [...]string{
	MatchPrefix:    "prefix",
	MatchSuffix:    "suffix",
	MatchIncludes:  "includes",
	MatchRegex:     "regex",
	MatchPredicate: "predicate",
}

func (k RuleKind) String() string {
	if int(k) < len(ruleKindNames) {
		return ruleKindNames[k]
	}
	return "unknown"
}

// PredicateFunc decides a match from the full (key, value, owner)
// triple. A panicking predicate counts as "no match"; it never aborts
// traversal.
type PredicateFunc func(key string, value object.Value, owner object.Value) bool

// TransformFunc maps a successful match to an output string. An empty
// return means "no output" for this match; a panic counts the same.
// pattern is the rule's Pattern (empty for predicate rules).
type TransformFunc func(key string, value object.Value, pattern string) string

// Rule is one match rule. Pattern backs the three string kinds, Regex
// the regex kind, Predicate the predicate kind; fields for other kinds
// are ignored. Without a Transform a match outputs the key itself.
//
// Rules are immutable during a collection pass. Go's regexp engine
// keeps no match cursor between calls, so a shared Regex may be reused
// across passes freely.
type Rule struct {
	Kind      RuleKind
	Pattern   string
	Regex     *regexp.Regexp
	Predicate PredicateFunc
	Transform TransformFunc
}

// MatchAll returns a rule matching every key.
func MatchAll() Rule {
	return Rule{
		Kind:      MatchPredicate,
		Predicate: func(string, object.Value, object.Value) bool { return true },
	}
}

// StripAffix returns a transform that removes the matched pattern from
// the key: the prefix for prefix rules, the suffix for suffix rules.
// Keys shorter than the pattern pass through unchanged.
func StripAffix(kind RuleKind) TransformFunc {
	return func(key string, _ object.Value, pattern string) string {
		if len(pattern) == 0 || len(key) < len(pattern) {
			return key
		}
		switch kind {
		case MatchPrefix:
			return key[len(pattern):]
		case MatchSuffix:
			return key[:len(key)-len(pattern)]
		}
		return key
	}
}

// cloneRules copies a rule slice so callers can hand out lists whose
// mutation cannot reach the original.
func cloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
