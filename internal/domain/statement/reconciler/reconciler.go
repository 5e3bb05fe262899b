// Package reconciler validates every movement's signed amount against the
// chain of printed running balances, the one ground truth a statement
// carries. It corrects sign errors, forces balance-derived amounts where the
// parsed value cannot be trusted, and flags rows it could not verify.
package reconciler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
)

// Config tunes the reconciliation tolerances. The zero value is usable; any
// unset field falls back to the default.
type Config struct {
	// RowTolerance is the maximum difference between a parsed amount and
	// the balance delta for the row to count as consistent.
	RowTolerance decimal.Decimal
	// SignFlipTolerance is the magnitude-match window for flipping a
	// wrong-signed amount. It must not exceed RowTolerance, or a flipped
	// row could still break the balance chain.
	SignFlipTolerance decimal.Decimal
	// ClosingTolerance bounds the whole-account check of opening plus all
	// movements against the declared closing balance.
	ClosingTolerance decimal.Decimal
	// CollapsePrevious and CollapseResidual describe the mis-segmentation
	// signature: a balance of at least CollapsePrevious falling to at most
	// CollapseResidual against a comparatively tiny parsed amount.
	CollapsePrevious decimal.Decimal
	CollapseResidual decimal.Decimal
}

// DefaultConfig returns the production reconciliation settings.
func DefaultConfig() Config {
	return Config{
		RowTolerance:      decimal.New(1, -2),
		SignFlipTolerance: decimal.New(1, -2),
		ClosingTolerance:  decimal.New(2, -2),
		CollapsePrevious:  decimal.NewFromInt(1_000_000),
		CollapseResidual:  decimal.NewFromInt(1),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RowTolerance.IsZero() {
		c.RowTolerance = def.RowTolerance
	}
	if c.SignFlipTolerance.IsZero() {
		c.SignFlipTolerance = def.SignFlipTolerance
	}
	if c.ClosingTolerance.IsZero() {
		c.ClosingTolerance = def.ClosingTolerance
	}
	if c.CollapsePrevious.IsZero() {
		c.CollapsePrevious = def.CollapsePrevious
	}
	if c.CollapseResidual.IsZero() {
		c.CollapseResidual = def.CollapseResidual
	}
	return c
}

// collapseRatio is the parsed-amount share of the previous balance below
// which a collapse looks like mis-segmentation rather than a real sweep.
var collapseRatio = decimal.New(1, -2)

// Reconciler adjusts transactions in place: amount, type, suspicious flag
// and suggested amount only. Dates, descriptions and printed balances are
// never touched.
type Reconciler struct {
	cfg Config
	log *slog.Logger
}

// New creates a Reconciler. A nil logger falls back to slog.Default().
func New(cfg Config, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{cfg: cfg.withDefaults(), log: log}
}

// ReconcileStatement runs every account of the statement through
// reconciliation and returns the combined warnings.
func (r *Reconciler) ReconcileStatement(stmt *statement.BankStatement) []string {
	if stmt == nil {
		return nil
	}
	var warnings []string
	for i := range stmt.Accounts {
		warnings = append(warnings, r.ReconcileAccount(&stmt.Accounts[i])...)
	}
	return warnings
}

// ReconcileAccount walks one account's movements against its balance chain.
func (r *Reconciler) ReconcileAccount(acc *statement.AccountStatement) []string {
	if acc == nil || len(acc.Transactions) == 0 {
		return nil
	}

	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	prev := acc.OpeningBalance
	var lastDate time.Time
	for i := range acc.Transactions {
		tx := &acc.Transactions[i]

		if i > 0 && tx.Date.Before(lastDate) {
			warnf("[order] %s: movement dated before its predecessor %s",
				tx.Date.Format("02/01/2006"), lastDate.Format("02/01/2006"))
		}
		lastDate = tx.Date

		if prev == nil {
			// Without an opening balance the first row has nothing to be
			// checked against; it seeds the chain and stays flagged.
			tx.IsSuspicious = true
			warnf("[unvalidated-first] %s: no opening balance to verify the first movement against",
				tx.Date.Format("02/01/2006"))
			seed := tx.Balance
			prev = &seed
			continue
		}

		parsed := tx.Amount
		expected := tx.Balance.Sub(*prev)

		switch {
		case parsed.Sub(expected).Abs().LessThanOrEqual(r.cfg.RowTolerance):
			// Consistent with the balance chain.
		case parsed.Neg().Sub(expected).Abs().LessThanOrEqual(r.cfg.SignFlipTolerance):
			tx.Amount = parsed.Neg()
			warnf("[sign-flip] %s: amount sign corrected to match the balance delta",
				tx.Date.Format("02/01/2006"))
			r.log.Debug("flipped movement sign",
				"date", tx.Date.Format("02/01/2006"),
				"amount", tx.Amount.StringFixed(2))
		default:
			suggested := expected
			tx.Amount = expected
			tx.SuggestedAmount = &suggested
			tx.IsSuspicious = true
			warnf("[amount-corrected] %s: parsed amount %s replaced by balance-derived %s",
				tx.Date.Format("02/01/2006"), parsed.StringFixed(2), expected.StringFixed(2))
			r.log.Debug("forced balance-derived amount",
				"date", tx.Date.Format("02/01/2006"),
				"parsed", parsed.StringFixed(2),
				"expected", expected.StringFixed(2))
		}

		// A seven-figure balance dropping to pocket change against a tiny
		// parsed amount is the signature of a mis-segmented block, even when
		// the delta itself reconciles.
		if prev.Abs().GreaterThanOrEqual(r.cfg.CollapsePrevious) &&
			tx.Balance.Abs().LessThanOrEqual(r.cfg.CollapseResidual) &&
			parsed.Abs().LessThan(prev.Abs().Mul(collapseRatio)) {
			tx.IsSuspicious = true
			warnf("[balance-collapse] %s: balance fell from %s to %s against a small movement",
				tx.Date.Format("02/01/2006"), prev.StringFixed(2), tx.Balance.StringFixed(2))
		}

		if tx.Amount.IsNegative() {
			tx.Type = statement.TypeDebit
		} else {
			tx.Type = statement.TypeCredit
		}

		b := tx.Balance
		prev = &b
	}

	if acc.OpeningBalance != nil && acc.ClosingBalance != nil {
		sum := decimal.Zero
		for i := range acc.Transactions {
			sum = sum.Add(acc.Transactions[i].Amount)
		}
		computed := acc.OpeningBalance.Add(sum)
		if computed.Sub(*acc.ClosingBalance).Abs().GreaterThan(r.cfg.ClosingTolerance) {
			warnf("[balance-mismatch] account %s: opening %s plus movements %s disagrees with closing %s",
				acc.AccountNumber,
				acc.OpeningBalance.StringFixed(2),
				sum.StringFixed(2),
				acc.ClosingBalance.StringFixed(2))
		}
	}

	return warnings
}
