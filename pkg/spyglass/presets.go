package spyglass

import (
	"fmt"
	"regexp"
	"sort"
)

// presetTable maps pack names to canned rule lists. The table is
// read-only; Preset hands out copies.
var presetTable = map[string][]Rule{
	"domEvents": {
		{Kind: MatchPrefix, Pattern: "on"},
		{Kind: MatchSuffix, Pattern: "Listener"},
	},
	"network": {
		{Kind: MatchIncludes, Pattern: "fetch"},
		{Kind: MatchPrefix, Pattern: "send"},
		{Kind: MatchIncludes, Pattern: "Request"},
		{Kind: MatchRegex, Regex: regexp.MustCompile(`^(open|abort)$`)},
	},
	"console": {
		{Kind: MatchRegex, Regex: regexp.MustCompile(`^(log|info|warn|error|debug|trace)$`)},
	},
	"timers": {
		{Kind: MatchPrefix, Pattern: "set"},
		{Kind: MatchPrefix, Pattern: "clear"},
		{Kind: MatchIncludes, Pattern: "Timeout"},
		{Kind: MatchIncludes, Pattern: "Interval"},
	},
	"storage": {
		{Kind: MatchSuffix, Pattern: "Item"},
		{Kind: MatchRegex, Regex: regexp.MustCompile(`^(key|clear|length)$`)},
	},
}

// Preset returns a copy of the named rule pack. Mutating the returned
// slice never affects the table.
func Preset(name string) ([]Rule, bool) {
	rules, ok := presetTable[name]
	if !ok {
		return nil, false
	}
	return cloneRules(rules), true
}

// MustPreset is Preset for known-good names; it panics on a missing
// pack.
func MustPreset(name string) []Rule {
	rules, ok := Preset(name)
	if !ok {
		panic(fmt.Sprintf("spyglass: unknown preset %q", name))
	}
	return rules
}

// PresetNames lists the available packs, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presetTable))
	for name := range presetTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
