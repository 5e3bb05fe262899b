package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultFuzzyThreshold is the minimum similarity score (0-100) a pattern
// must reach before a fuzzy assignment is trusted. Statement descriptions
// are noisy enough that anything lower produces junk categories.
const DefaultFuzzyThreshold = 70

// FuzzyMatchResult represents a fuzzy match with its similarity score.
type FuzzyMatchResult struct {
	Pattern     string // Normalized pattern that matched
	Category    string
	Subcategory string
	RuleID      uuid.UUID
	Score       int // Similarity score (higher = better match, max 100)
	Distance    int // Levenshtein distance (lower = closer match)
}

// FuzzyMatcher provides fuzzy string matching using Levenshtein distance.
// It catches the rule misses the exact engine cannot: truncated merchant
// names, OCR swaps and spacing variations in otherwise known descriptions.
type FuzzyMatcher struct {
	patterns []fuzzyPattern
	mu       sync.RWMutex
}

type fuzzyPattern struct {
	normalized  string // Uppercase, trimmed pattern for matching
	category    string
	subcategory string
	ruleID      uuid.UUID
	priority    int
}

// NewFuzzyMatcher creates a fuzzy matcher from a rule set.
func NewFuzzyMatcher(rules []Rule) *FuzzyMatcher {
	fm := &FuzzyMatcher{}
	fm.Build(rules)
	return fm
}

// Build constructs the fuzzy matcher from rules.
func (fm *FuzzyMatcher) Build(rules []Rule) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	fm.patterns = make([]fuzzyPattern, 0, len(rules))
	for _, rule := range rules {
		cleanPattern := strings.ToUpper(strings.TrimSpace(rule.Pattern))
		if cleanPattern == "" {
			continue
		}
		fm.patterns = append(fm.patterns, fuzzyPattern{
			normalized:  cleanPattern,
			category:    rule.Category,
			subcategory: rule.Subcategory,
			ruleID:      rule.ID,
			priority:    rule.Priority,
		})
	}
}

// Match finds the best fuzzy match for the given description, or nil when no
// pattern reaches the threshold. Ties on score fall to rule priority. A
// threshold of zero or less uses DefaultFuzzyThreshold.
func (fm *FuzzyMatcher) Match(description string, threshold int) *FuzzyMatchResult {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	if len(fm.patterns) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	normalized := strings.ToUpper(description)

	var best *FuzzyMatchResult
	bestPriority := 0

	for _, p := range fm.patterns {
		score := fuzzyScore(normalized, p.normalized)
		if score < threshold {
			continue
		}
		if best == nil || score > best.Score || (score == best.Score && p.priority > bestPriority) {
			best = &FuzzyMatchResult{
				Pattern:     p.normalized,
				Category:    p.category,
				Subcategory: p.subcategory,
				RuleID:      p.ruleID,
				Score:       score,
				Distance:    levenshteinDistance(normalized, p.normalized),
			}
			bestPriority = p.priority
		}
	}

	return best
}

// MatchAll finds all fuzzy matches above the threshold, sorted by score
// (highest first).
func (fm *FuzzyMatcher) MatchAll(description string, threshold int) []FuzzyMatchResult {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	if len(fm.patterns) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	normalized := strings.ToUpper(description)
	var results []FuzzyMatchResult

	for _, p := range fm.patterns {
		score := fuzzyScore(normalized, p.normalized)
		if score >= threshold {
			results = append(results, FuzzyMatchResult{
				Pattern:     p.normalized,
				Category:    p.category,
				Subcategory: p.subcategory,
				RuleID:      p.ruleID,
				Score:       score,
				Distance:    levenshteinDistance(normalized, p.normalized),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// PatternCount returns the number of patterns in the matcher.
func (fm *FuzzyMatcher) PatternCount() int {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return len(fm.patterns)
}

// fuzzyScore calculates a similarity score between two strings (0-100).
// Ladder: exact match, containment (scored by length ratio), then the best
// of Levenshtein similarity and subsequence rank.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}

	// Containment is the common case for merchant variations such as
	// "PAGO TARJETA VISA 0034" against the pattern "TARJETA VISA".
	if strings.Contains(s1, s2) {
		return 75 + (25 * len(s2) / len(s1))
	}
	if strings.Contains(s2, s1) {
		return 75 + (25 * len(s1) / len(s2))
	}

	distance := levenshteinDistance(s1, s2)
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 0
	}
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	// Subsequence rank catches patterns scattered through a longer
	// description; earlier matches score higher.
	fuzzyLibScore := 0
	if rank := fuzzy.RankMatch(s2, s1); rank >= 0 && rank < len(s1) {
		fuzzyLibScore = 60 - (rank * 40 / len(s1))
	}

	if levenshteinScore > fuzzyLibScore {
		return levenshteinScore
	}
	return fuzzyLibScore
}

// levenshteinDistance calculates the edit distance between two strings using
// two rows instead of the full matrix.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)

	for j := 0; j <= len(r2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
