package parser

import (
	"regexp"
	"time"
)

// MatchOutcome distinguishes a genuine miss from a match attempt aborted by
// the time budget, so callers can skip-and-warn instead of misreading
// pathological input as "no match".
type MatchOutcome int

const (
	MatchMiss MatchOutcome = iota
	MatchHit
	MatchTimeout
)

// maxMatchLen rejects lines long enough to make even linear-time matching a
// budget risk. Real statement rows are a few hundred characters.
const maxMatchLen = 1 << 14

// matcher applies regular expressions under a wall-clock budget. The regexp
// engine itself cannot backtrack catastrophically, so enforcement is a
// length guard up front plus an elapsed check after each application; both
// surface as MatchTimeout.
type matcher struct {
	budget time.Duration
	clock  func() time.Time
}

func newMatcher(budget time.Duration) *matcher {
	return &matcher{budget: budget, clock: time.Now}
}

func (m *matcher) guard(s string) bool {
	return len(s) <= maxMatchLen
}

// find runs FindStringSubmatch under the budget.
func (m *matcher) find(re *regexp.Regexp, s string) ([]string, MatchOutcome) {
	if !m.guard(s) {
		return nil, MatchTimeout
	}
	start := m.clock()
	groups := re.FindStringSubmatch(s)
	if m.clock().Sub(start) > m.budget {
		return nil, MatchTimeout
	}
	if groups == nil {
		return nil, MatchMiss
	}
	return groups, MatchHit
}

// findIndex runs FindStringSubmatchIndex under the budget.
func (m *matcher) findIndex(re *regexp.Regexp, s string) ([]int, MatchOutcome) {
	if !m.guard(s) {
		return nil, MatchTimeout
	}
	start := m.clock()
	loc := re.FindStringSubmatchIndex(s)
	if m.clock().Sub(start) > m.budget {
		return nil, MatchTimeout
	}
	if loc == nil {
		return nil, MatchMiss
	}
	return loc, MatchHit
}

// match reports whether the pattern applies at all.
func (m *matcher) match(re *regexp.Regexp, s string) MatchOutcome {
	if !m.guard(s) {
		return MatchTimeout
	}
	start := m.clock()
	ok := re.MatchString(s)
	if m.clock().Sub(start) > m.budget {
		return MatchTimeout
	}
	if !ok {
		return MatchMiss
	}
	return MatchHit
}

// replaceAll rewrites every occurrence under the budget. On timeout the
// input is returned unchanged so callers can keep the raw text.
func (m *matcher) replaceAll(re *regexp.Regexp, s, repl string) (string, MatchOutcome) {
	if !m.guard(s) {
		return s, MatchTimeout
	}
	start := m.clock()
	out := re.ReplaceAllString(s, repl)
	if m.clock().Sub(start) > m.budget {
		return s, MatchTimeout
	}
	if out == s {
		return s, MatchMiss
	}
	return out, MatchHit
}
