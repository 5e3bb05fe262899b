package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/extraction"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// accountInfo is what a bank's account marker yields: the printed account
// number, a human label and the section currency.
type accountInfo struct {
	number   string
	label    string
	currency string
}

// replacement is one entry of a bank's description canonicalization table.
type replacement struct {
	re   *regexp.Regexp
	repl string
}

// bankSpec is one bank's statement vocabulary. A fresh instance is built
// per parse because accountStart closures may carry scan state (Galicia
// prints the account number lines before its currency sections).
type bankSpec struct {
	period       *regexp.Regexp
	accountStart func(m *matcher, line string) (accountInfo, MatchOutcome)
	opening      func(line string) bool
	closing      func(line string) bool
	movements    func(line string) bool
	noise        func(line string) bool
	canonical    []replacement
}

// engine drives the shared parse flow: discover account sections, bound
// each movements region, segment it into blocks and assemble the ledger.
type engine struct {
	bank    statement.Bank
	newSpec func() bankSpec
	cfg     Config
}

func newEngine(bank statement.Bank, newSpec func() bankSpec, cfg Config) engine {
	return engine{bank: bank, newSpec: newSpec, cfg: cfg.withDefaults()}
}

type accountMark struct {
	index int
	info  accountInfo
}

func (e engine) run(ctx context.Context, text string, progress Progress) (*ParseResult, error) {
	if progress == nil {
		progress = func(string, int, int) {}
	}
	spec := e.newSpec()
	m := newMatcher(e.cfg.MatchTimeout)

	result := &ParseResult{Statement: &statement.BankStatement{Bank: e.bank}}
	warnf := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	lines := documentLines(text)
	if len(lines) == 0 {
		warnf("[no-date-anchors] document contains no text lines")
		return result, nil
	}

	marks, periodStart, periodEnd := e.discover(m, spec, lines, warnf)

	if len(marks) == 0 {
		if !hasDateAnchors(m, lines) {
			warnf("[no-date-anchors] no movement lines found in document")
			return result, nil
		}
		warnf("no account markers found, scanning the whole document as one account")
		marks = []accountMark{{index: -1, info: accountInfo{currency: money.ARS}}}
	} else {
		warnf("detected %d account section(s)", len(marks))
	}

	for k, mark := range marks {
		// Cancellation is honored between account passes; a cancelled parse
		// returns no partial result.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress("accounts", k+1, len(marks))

		start := mark.index + 1
		end := len(lines)
		if k+1 < len(marks) {
			end = marks[k+1].index
		}

		account, err := e.parseAccount(ctx, m, spec, mark.info, lines[start:end], warnf)
		if err != nil {
			return nil, err
		}
		result.Statement.Accounts = append(result.Statement.Accounts, *account)
	}
	progress("accounts", len(marks), len(marks))

	if periodStart == nil {
		periodStart, periodEnd = derivePeriod(result.Statement)
	}
	result.Statement.PeriodStart = periodStart
	result.Statement.PeriodEnd = periodEnd

	return result, nil
}

// discover walks the document once, collecting account markers and the
// header period. Match timeouts here skip the line; enough of them abort
// discovery with whatever was found.
func (e engine) discover(m *matcher, spec bankSpec, lines []string, warnf func(string, ...any)) ([]accountMark, *time.Time, *time.Time) {
	var marks []accountMark
	var periodStart, periodEnd *time.Time
	timeouts := 0

	for i, line := range lines {
		if spec.period != nil && periodStart == nil {
			if s, en, outcome := parsePeriod(m, spec.period, line); outcome == MatchHit {
				periodStart, periodEnd = &s, &en
			}
		}

		info, outcome := spec.accountStart(m, line)
		switch outcome {
		case MatchHit:
			marks = append(marks, accountMark{index: i, info: info})
		case MatchTimeout:
			timeouts++
			warnf("[match-timeout] account discovery skipped a line")
			if timeouts >= maxMatchTimeouts {
				warnf("[match-timeout] account discovery aborted after %d timeouts", timeouts)
				return marks, periodStart, periodEnd
			}
		}
	}
	return marks, periodStart, periodEnd
}

// parseAccount bounds the movements region of one account slice and
// segments it into transactions.
func (e engine) parseAccount(ctx context.Context, m *matcher, spec bankSpec, info accountInfo, slice []string, warnf func(string, ...any)) (*statement.AccountStatement, error) {
	openingIdx, opening := findMarkerAmount(slice, spec.opening)
	movementsIdx := findMarker(slice, spec.movements)

	start := 0
	if openingIdx >= 0 {
		start = openingIdx + 1
	}
	if movementsIdx >= 0 && movementsIdx+1 > start {
		start = movementsIdx + 1
	}

	closingRel, closing := findMarkerAmount(slice[start:], spec.closing)
	end := len(slice)
	if closingRel >= 0 {
		end = start + closingRel
	}

	region := slice[start:end]
	if !hasDateAnchors(m, region) && hasDateAnchors(m, slice) {
		// Markers bounded an empty region although the slice clearly holds
		// movements. Scan everything; marker lines are noise to the
		// segmenter, so they cannot leak into blocks.
		warnf("movements boundary unclear for account %q, scanning the whole section", info.number)
		region = slice
	}

	seg := newSegmenter(e.cfg, m, e.sectionNoise(m, spec))
	raw, err := seg.run(ctx, region)
	if err != nil {
		return nil, err
	}
	for _, w := range seg.warnings {
		warnf("%s", w)
	}

	account := &statement.AccountStatement{
		AccountNumber:  info.number,
		Label:          info.label,
		Currency:       info.currency,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Transactions:   make([]statement.Transaction, 0, len(raw)),
	}

	for _, rt := range raw {
		amount := rt.amount
		if !rt.signed && amount.IsPositive() {
			if typ, ok := inferType(rt.description); ok && typ == statement.TypeDebit {
				amount = amount.Neg()
			}
		}
		typ := statement.TypeCredit
		if amount.IsNegative() {
			typ = statement.TypeDebit
		}

		desc, timedOut := e.canonicalize(m, spec, rt.description)
		if timedOut {
			warnf("[match-timeout] canonicalization left a description raw")
		}

		account.Transactions = append(account.Transactions, statement.Transaction{
			Date:                rt.date,
			Description:         desc,
			OriginalDescription: rt.description,
			Amount:              amount,
			Type:                typ,
			Balance:             rt.balance,
		})
	}

	return account, nil
}

// sectionNoise combines the bank's noise filter with every marker
// vocabulary, so structural lines never become block continuations.
func (e engine) sectionNoise(m *matcher, spec bankSpec) func(string) bool {
	return func(line string) bool {
		if spec.noise != nil && spec.noise(line) {
			return true
		}
		if spec.opening != nil && spec.opening(line) {
			return true
		}
		if spec.closing != nil && spec.closing(line) {
			return true
		}
		if spec.movements != nil && spec.movements(line) {
			return true
		}
		if _, outcome := spec.accountStart(m, line); outcome == MatchHit {
			return true
		}
		return false
	}
}

// canonicalize applies the bank's description replacement table. A blown
// match budget returns the raw text untouched.
func (e engine) canonicalize(m *matcher, spec bankSpec, raw string) (string, bool) {
	out := raw
	for _, r := range spec.canonical {
		next, outcome := m.replaceAll(r.re, out, r.repl)
		if outcome == MatchTimeout {
			return raw, true
		}
		out = next
	}
	out = strings.Join(strings.Fields(out), " ")
	if out == "" {
		return raw, false
	}
	return out, false
}

// documentLines splits normalized text into content lines, dropping page
// markers and blanks.
func documentLines(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" || l == extraction.PageMarker {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// hasDateAnchors reports whether any line opens with a movement date.
func hasDateAnchors(m *matcher, lines []string) bool {
	for _, line := range lines {
		if _, _, outcome := dateAnchor(m, line); outcome == MatchHit {
			return true
		}
	}
	return false
}

// findMarker returns the index of the first line the predicate accepts.
func findMarker(lines []string, marker func(string) bool) int {
	if marker == nil {
		return -1
	}
	for i, line := range lines {
		if marker(line) {
			return i
		}
	}
	return -1
}

// findMarkerAmount locates a balance marker line and reads its amount: the
// rightmost monetary token on the line, or a lone token on the next line
// when the layout wrapped it.
func findMarkerAmount(lines []string, marker func(string) bool) (int, *decimal.Decimal) {
	if marker == nil {
		return -1, nil
	}
	for i, line := range lines {
		if !marker(line) {
			continue
		}
		if v, ok := lastAmountOnLine(line); ok {
			return i, &v
		}
		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if money.IsStatementToken(next) {
				if v, err := money.ParseStatementToken(next); err == nil {
					return i, &v
				}
			}
		}
		return i, nil
	}
	return -1, nil
}

// parsePeriod reads the explicit statement period from a header line. The
// bank pattern must capture two dd/mm/yy(yy) groups.
func parsePeriod(m *matcher, re *regexp.Regexp, line string) (time.Time, time.Time, MatchOutcome) {
	groups, outcome := m.find(re, line)
	if outcome != MatchHit {
		return time.Time{}, time.Time{}, outcome
	}
	start, ok1 := parseSlashDate(groups[1])
	end, ok2 := parseSlashDate(groups[2])
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, MatchMiss
	}
	return start, end, MatchHit
}

func parseSlashDate(s string) (time.Time, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	return makeDate(parts[0], parts[1], parts[2])
}

// lineContains reports whether the upper-cased line contains any of the
// marker phrases.
func lineContains(line string, phrases ...string) bool {
	upper := strings.ToUpper(line)
	for _, p := range phrases {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

// derivePeriod falls back to the min/max transaction dates when the header
// never printed an explicit period.
func derivePeriod(stmt *statement.BankStatement) (*time.Time, *time.Time) {
	var start, end *time.Time
	for i := range stmt.Accounts {
		for j := range stmt.Accounts[i].Transactions {
			d := stmt.Accounts[i].Transactions[j].Date
			if start == nil || d.Before(*start) {
				dd := d
				start = &dd
			}
			if end == nil || d.After(*end) {
				dd := d
				end = &dd
			}
		}
	}
	return start, end
}
