// Package parser segments normalized statement text into date-anchored
// transaction blocks and emits raw ledger movements. One implementation
// exists per supported bank; they share the block machinery and differ in
// marker vocabulary, section structure and description canonicalization.
package parser

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
)

// Progress reports parsing stages back to the caller. It is purely
// observational: implementations must produce identical output whether or
// not a callback is provided.
type Progress func(stage string, current, total int)

// ParseResult is the outcome of parsing one document. Warnings form an
// ordered audit trail (skipped blocks, marker fallbacks, match timeouts);
// they never imply failure, and an empty statement is a valid result.
type ParseResult struct {
	Statement *statement.BankStatement
	Warnings  []string
}

// Parser converts normalized statement text into a ledger. Implementations
// never return an error for data-quality problems; the error path is
// reserved for cancellation.
type Parser interface {
	Bank() statement.Bank
	Parse(ctx context.Context, text string, progress Progress) (*ParseResult, error)
}

// Config tunes the shared block machinery. The zero value is usable; any
// unset field falls back to the default.
type Config struct {
	// MatchTimeout bounds every pattern application. A blown budget is
	// reported as a timeout outcome, not an error.
	MatchTimeout time.Duration
	// QueueCapacity caps the pending-line work queue used during block
	// segmentation. Lines beyond the cap are dropped with a warning.
	QueueCapacity int
	// SanityCeiling discards blocks whose amount magnitude is implausible
	// for a retail account statement.
	SanityCeiling decimal.Decimal
}

// DefaultConfig returns the production parser settings.
func DefaultConfig() Config {
	return Config{
		MatchTimeout:  1500 * time.Millisecond,
		QueueCapacity: 5000,
		SanityCeiling: decimal.NewFromInt(50_000_000),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MatchTimeout <= 0 {
		c.MatchTimeout = def.MatchTimeout
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.SanityCeiling.IsZero() {
		c.SanityCeiling = def.SanityCeiling
	}
	return c
}

// ForBank returns the parser registered for a bank identifier. The lookup
// is case-insensitive; false means the bank is not supported.
func ForBank(name string, cfg Config) (Parser, bool) {
	bank, ok := statement.ParseBank(name)
	if !ok {
		return nil, false
	}
	switch bank {
	case statement.BankGalicia:
		return NewGalicia(cfg), true
	case statement.BankSupervielle:
		return NewSupervielle(cfg), true
	case statement.BankSantander:
		return NewSantander(cfg), true
	case statement.BankBBVA:
		return NewBBVA(cfg), true
	}
	return nil, false
}

// All returns one parser per supported bank, in stable order. Used by the
// sniffer to score an unidentified document against every vocabulary.
func All(cfg Config) []Parser {
	return []Parser{
		NewGalicia(cfg),
		NewSupervielle(cfg),
		NewSantander(cfg),
		NewBBVA(cfg),
	}
}
