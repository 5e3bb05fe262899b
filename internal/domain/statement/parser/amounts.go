package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

var (
	// dateAnchorPattern opens a transaction block: dd/mm/yy or dd/mm/yyyy
	// at the start of a line.
	dateAnchorPattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4}|\d{2})(?:\s|$)`)

	// inlineDatePattern finds a date that begins mid-line, the signature of
	// two printed rows merged into one reconstructed line.
	inlineDatePattern = regexp.MustCompile(`\s(\d{2}/\d{2}/(?:\d{4}|\d{2}))(?:\s|$)`)
)

// HasDateAnchor reports whether a line opens with a dd/mm/yy or dd/mm/yyyy
// block anchor. The orchestrator's page filters use it to tell ledger pages
// from inserts without running a full parse.
func HasDateAnchor(line string) bool {
	return dateAnchorPattern.MatchString(line)
}

// dateAnchor reads the block-opening date of a line. The consumed length
// covers the date and its trailing separator so callers can slice off the
// remainder as description text.
func dateAnchor(m *matcher, line string) (time.Time, int, MatchOutcome) {
	loc, outcome := m.findIndex(dateAnchorPattern, line)
	if outcome != MatchHit {
		return time.Time{}, 0, outcome
	}
	day := line[loc[2]:loc[3]]
	month := line[loc[4]:loc[5]]
	year := line[loc[6]:loc[7]]
	date, ok := makeDate(day, month, year)
	if !ok {
		return time.Time{}, 0, MatchMiss
	}
	return date, loc[1], MatchHit
}

// inlineDateIndex locates a second row start merged into the line. It
// returns the byte offset of the embedded date, or -1.
func inlineDateIndex(m *matcher, line string) (int, MatchOutcome) {
	loc, outcome := m.findIndex(inlineDatePattern, line)
	if outcome != MatchHit {
		return -1, outcome
	}
	date := line[loc[2]:loc[3]]
	parts := strings.SplitN(date, "/", 3)
	if _, ok := makeDate(parts[0], parts[1], parts[2]); !ok {
		return -1, MatchMiss
	}
	return loc[2], MatchHit
}

// makeDate validates day/month ranges and widens two-digit years into the
// 2000s, which covers every statement this pipeline will ever see.
func makeDate(day, month, year string) (time.Time, bool) {
	d := atoi(day)
	mo := atoi(month)
	y := atoi(year)
	if d < 1 || d > 31 || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	if y < 100 {
		y += 2000
	}
	date := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject those.
	if date.Day() != d || date.Month() != time.Month(mo) {
		return time.Time{}, false
	}
	return date, true
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// tokenPosition is a strict monetary token found in a block, with enough
// position info to cut the description out of the surrounding text.
type tokenPosition struct {
	line  int
	field int
	value string
}

// scanTokens collects every strict monetary token across the block's lines
// in reading order.
func scanTokens(lines []string) []tokenPosition {
	var tokens []tokenPosition
	for li, line := range lines {
		for fi, f := range strings.Fields(line) {
			if money.IsStatementToken(f) {
				tokens = append(tokens, tokenPosition{line: li, field: fi, value: f})
			}
		}
	}
	return tokens
}

// lastAmountOnLine parses the rightmost monetary token of a line. Balance
// marker lines ("SALDO ANTERIOR 1.500,00") are read this way.
func lastAmountOnLine(line string) (decimal.Decimal, bool) {
	fields := strings.Fields(line)
	for i := len(fields) - 1; i >= 0; i-- {
		if money.IsStatementToken(fields[i]) {
			d, err := money.ParseStatementToken(fields[i])
			if err != nil {
				return decimal.Decimal{}, false
			}
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

// hasAmount reports whether any field of the line is a monetary token.
func hasAmount(line string) bool {
	for _, f := range strings.Fields(line) {
		if money.IsStatementToken(f) {
			return true
		}
	}
	return false
}

// signInference maps description keywords to a movement direction, used
// only when the amount token itself carries no sign. Longer phrases come
// first so "TRANSFERENCIA RECIBIDA" wins over any shorter debit cue.
var signInference = []struct {
	phrase string
	typ    statement.TransactionType
}{
	{"TRANSFERENCIA RECIBIDA", statement.TypeCredit},
	{"TRANSFERENCIA EMITIDA", statement.TypeDebit},
	{"TRANSF RECIBIDA", statement.TypeCredit},
	{"ACREDITACION", statement.TypeCredit},
	{"ACREDITAMIENTO", statement.TypeCredit},
	{"DEPOSITO", statement.TypeCredit},
	{"HABERES", statement.TypeCredit},
	{"REINTEGRO", statement.TypeCredit},
	{"DEVOLUCION", statement.TypeCredit},
	{"INTERESES GANADOS", statement.TypeCredit},
	{"RESCATE", statement.TypeCredit},
	{"EXTRACCION", statement.TypeDebit},
	{"RETENCION", statement.TypeDebit},
	{"PERCEPCION", statement.TypeDebit},
	{"IMPUESTO", statement.TypeDebit},
	{"COMISION", statement.TypeDebit},
	{"MANTENIMIENTO", statement.TypeDebit},
	{"DEBITO", statement.TypeDebit},
	{"DEB.AUT", statement.TypeDebit},
	{"SUSCRIPCION", statement.TypeDebit},
	{"PAGO", statement.TypeDebit},
	{"COMPRA", statement.TypeDebit},
	{"IVA", statement.TypeDebit},
	{"LEY 25413", statement.TypeDebit},
	{"SERVICIO", statement.TypeDebit},
}

// inferType guesses a movement's direction from its description. The guess
// is provisional: balance reconciliation overrides it whenever a previous
// balance exists.
func inferType(description string) (statement.TransactionType, bool) {
	upper := strings.ToUpper(description)
	for _, rule := range signInference {
		if strings.Contains(upper, rule.phrase) {
			return rule.typ, true
		}
	}
	return "", false
}
