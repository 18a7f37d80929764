package spyglass

import (
	"strings"

	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// Match describes one rule hit during traversal, delivered to the
// OnMatch observer. Output is the transformed output string, "" when
// the transform yielded nothing.
type Match struct {
	Key    string
	Value  object.Value
	Owner  object.Value
	Rule   *Rule
	Output string
}

// MatchObserver receives every rule hit. Observer panics are swallowed;
// observation can never derail a collection pass.
type MatchObserver func(Match)

// evaluateRules runs every rule against one (key, value, owner) triple
// in input order, appending non-empty outputs to the result set and
// notifying the observer per hit. It never panics regardless of
// hostile predicates, transforms, or observers.
func evaluateRules(rules []Rule, key string, value object.Value, owner object.Value, observer MatchObserver, out *resultSet) {
	for i := range rules {
		rule := &rules[i]
		if !ruleMatches(rule, key, value, owner) {
			continue
		}
		output := ruleOutput(rule, key, value)
		if output != "" {
			out.add(output)
		}
		notifyObserver(observer, Match{
			Key:    key,
			Value:  value,
			Owner:  owner,
			Rule:   rule,
			Output: output,
		})
	}
}

func ruleMatches(rule *Rule, key string, value object.Value, owner object.Value) bool {
	switch rule.Kind {
	case MatchPrefix:
		return rule.Pattern != "" && strings.HasPrefix(key, rule.Pattern)
	case MatchSuffix:
		return rule.Pattern != "" && strings.HasSuffix(key, rule.Pattern)
	case MatchIncludes:
		return rule.Pattern != "" && strings.Contains(key, rule.Pattern)
	case MatchRegex:
		return rule.Regex != nil && rule.Regex.MatchString(key)
	case MatchPredicate:
		return safePredicate(rule.Predicate, key, value, owner)
	default:
		// Unrecognized kind: inert.
		return false
	}
}

func ruleOutput(rule *Rule, key string, value object.Value) string {
	if rule.Transform == nil {
		return key
	}
	return safeTransform(rule.Transform, key, value, rule.Pattern)
}

func safePredicate(p PredicateFunc, key string, value object.Value, owner object.Value) (matched bool) {
	if p == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return p(key, value, owner)
}

func safeTransform(t TransformFunc, key string, value object.Value, pattern string) (output string) {
	defer func() {
		if recover() != nil {
			output = ""
		}
	}()
	return t(key, value, pattern)
}

func notifyObserver(observer MatchObserver, m Match) {
	if observer == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	observer(m)
}

// resultSet accumulates output strings with set semantics: duplicates
// are dropped, insertion order is kept for stable output.
type resultSet struct {
	seen  map[string]struct{}
	order []string
}

func newResultSet() *resultSet {
	return &resultSet{seen: make(map[string]struct{})}
}

func (s *resultSet) add(v string) {
	if _, dup := s.seen[v]; dup {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *resultSet) addAll(vs []string) {
	for _, v := range vs {
		s.add(v)
	}
}

func (s *resultSet) strings() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
