package parser

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var tokenRe = regexp.MustCompile(`\d+,\d{2}`)

func TestMatcherOutcomes(t *testing.T) {
	m := newMatcher(time.Second)

	assert.Equal(t, MatchHit, m.match(tokenRe, "SALDO 1.500,00"))
	assert.Equal(t, MatchMiss, m.match(tokenRe, "SALDO PENDIENTE"))

	groups, outcome := m.find(regexp.MustCompile(`(\d+),(\d{2})`), "99,50")
	assert.Equal(t, MatchHit, outcome)
	assert.Equal(t, []string{"99,50", "99", "50"}, groups)

	_, outcome = m.find(tokenRe, "sin importes")
	assert.Equal(t, MatchMiss, outcome)
}

func TestMatcherLengthGuard(t *testing.T) {
	m := newMatcher(time.Second)
	huge := strings.Repeat("a", maxMatchLen+1)

	assert.Equal(t, MatchTimeout, m.match(tokenRe, huge))

	_, outcome := m.find(tokenRe, huge)
	assert.Equal(t, MatchTimeout, outcome)

	out, outcome := m.replaceAll(tokenRe, huge, "X")
	assert.Equal(t, MatchTimeout, outcome)
	assert.Equal(t, huge, out, "timeout must leave the input unchanged")
}

func TestMatcherBudgetOverrun(t *testing.T) {
	// A clock that jumps past the budget on every second reading makes each
	// application look slower than allowed.
	now := time.Now()
	calls := 0
	m := &matcher{budget: time.Millisecond, clock: func() time.Time {
		calls++
		if calls%2 == 0 {
			return now.Add(time.Second)
		}
		return now
	}}

	assert.Equal(t, MatchTimeout, m.match(tokenRe, "1.500,00"))

	out, outcome := m.replaceAll(tokenRe, "1.500,00", "X")
	assert.Equal(t, MatchTimeout, outcome)
	assert.Equal(t, "1.500,00", out)
}

func TestMatcherReplaceAll(t *testing.T) {
	m := newMatcher(time.Second)

	out, outcome := m.replaceAll(regexp.MustCompile(`TARJETAVISA`), "PAGO TARJETAVISA", "TARJETA VISA")
	assert.Equal(t, MatchHit, outcome)
	assert.Equal(t, "PAGO TARJETA VISA", out)

	out, outcome = m.replaceAll(regexp.MustCompile(`TARJETAVISA`), "PAGO VISA", "TARJETA VISA")
	assert.Equal(t, MatchMiss, outcome)
	assert.Equal(t, "PAGO VISA", out)
}
