// Package reprocess decides whether a bot's reply must be regenerated and
// owns the depth-bounded regeneration loop.
package reprocess

import "strings"

// CannedRule is a data-driven shortcut: when Trigger appears in a bot's
// reprocessing criterion or instructions, the evaluator forces reprocessing
// and the next regeneration emits Response directly, skipping the gateway.
// The default rule set is empty; rules exist for deterministic test and demo
// scenarios, not production judgment.
type CannedRule struct {
	Trigger  string `yaml:"trigger"`
	Response string `yaml:"response"`
}

// matchCanned returns the first rule whose trigger appears (case-insensitive)
// in the criterion or the reprocessing instructions.
func matchCanned(rules []CannedRule, criteria, instructions string) (*CannedRule, bool) {
	if len(rules) == 0 {
		return nil, false
	}

	criteria = strings.ToLower(criteria)
	instructions = strings.ToLower(instructions)

	for i := range rules {
		trigger := strings.ToLower(strings.TrimSpace(rules[i].Trigger))
		if trigger == "" {
			continue
		}
		if strings.Contains(criteria, trigger) || strings.Contains(instructions, trigger) {
			return &rules[i], true
		}
	}
	return nil, false
}

// alwaysTrueVocabulary lists criterion texts that force reprocessing without
// consulting the judge. Deterministic fast path for test/debug scenarios.
//
//nolint:gochecknoglobals // Fixed vocabulary table
var alwaysTrueVocabulary = map[string]bool{
	"yes":       true,
	"true":      true,
	"always":    true,
	"any input": true,
	"retry":     true,
	"test":      true,
}

// isAlwaysTrue reports whether the criterion is in the always-true vocabulary
// (case-insensitive, trimmed).
func isAlwaysTrue(criteria string) bool {
	return alwaysTrueVocabulary[strings.ToLower(strings.TrimSpace(criteria))]
}
