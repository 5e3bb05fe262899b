package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
)

// MatchResult represents a single pattern hit with the rule that produced it.
type MatchResult struct {
	Pattern     string // Normalized pattern that matched
	Category    string
	Subcategory string
	RuleID      uuid.UUID
	Priority    int
}

// Engine is a pattern matching engine using the Aho-Corasick algorithm.
// It matches thousands of rule patterns in a single pass through the text:
// O(n + m) where n = text length, m = total matches, independent of the
// number of patterns.
type Engine struct {
	matcher  *ahocorasick.Matcher
	patterns []string        // Unique patterns in same order as matcher
	metadata [][]MatchResult // Several rules may share one pattern
	mu       sync.RWMutex    // Protects rebuilding the matcher
}

// NewEngine creates an engine from a rule set. The engine pre-computes a
// state machine (trie) for efficient multi-pattern matching.
func NewEngine(rules []Rule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build constructs the Aho-Corasick matcher from rules. Call it again to
// rebuild the engine when the rule set changes. Duplicate patterns are
// grouped so every rule behind a pattern stays reachable.
func (e *Engine) Build(rules []Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(rules) == 0 {
		e.matcher = nil
		e.patterns = nil
		e.metadata = nil
		return
	}

	patternToIndex := make(map[string]int, len(rules))
	patterns := make([]string, 0, len(rules))
	metadata := make([][]MatchResult, 0, len(rules))

	for _, rule := range rules {
		cleanPattern := strings.ToUpper(strings.TrimSpace(rule.Pattern))
		if cleanPattern == "" {
			continue
		}

		result := MatchResult{
			Pattern:     cleanPattern,
			Category:    rule.Category,
			Subcategory: rule.Subcategory,
			RuleID:      rule.ID,
			Priority:    rule.Priority,
		}

		if idx, exists := patternToIndex[cleanPattern]; exists {
			metadata[idx] = append(metadata[idx], result)
			continue
		}
		patternToIndex[cleanPattern] = len(patterns)
		patterns = append(patterns, cleanPattern)
		metadata = append(metadata, []MatchResult{result})
	}

	e.patterns = patterns
	e.metadata = metadata
	e.matcher = nil

	if len(patterns) > 0 {
		bytePatterns := make([][]byte, len(patterns))
		for i, p := range patterns {
			bytePatterns[i] = []byte(p)
		}
		e.matcher = ahocorasick.NewMatcher(bytePatterns)
	}
}

// Match finds all matching patterns in the description and returns the best
// one: highest priority first, longest pattern on ties. Returns nil if no
// pattern matches.
func (e *Engine) Match(description string) *MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bestMatch(strings.ToUpper(description))
}

// MatchBatch categorizes multiple descriptions under a single read lock.
func (e *Engine) MatchBatch(descriptions []string) []*MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make([]*MatchResult, len(descriptions))
	for i, desc := range descriptions {
		results[i] = e.bestMatch(strings.ToUpper(desc))
	}
	return results
}

// bestMatch runs one pass over the text. Callers hold the read lock.
func (e *Engine) bestMatch(normalized string) *MatchResult {
	if e.matcher == nil || len(e.patterns) == 0 {
		return nil
	}

	matches := e.matcher.Match([]byte(normalized))
	if len(matches) == 0 {
		return nil
	}

	var best *MatchResult
	for _, idx := range matches {
		if idx < 0 || idx >= len(e.metadata) {
			continue
		}
		for i := range e.metadata[idx] {
			m := &e.metadata[idx][i]
			if best == nil || m.Priority > best.Priority ||
				(m.Priority == best.Priority && len(m.Pattern) > len(best.Pattern)) {
				matchCopy := *m
				best = &matchCopy
			}
		}
	}
	return best
}

// PatternCount returns the number of unique patterns loaded in the engine.
func (e *Engine) PatternCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.patterns)
}

// IsEmpty returns true if the engine has no patterns loaded.
func (e *Engine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher == nil || len(e.patterns) == 0
}
