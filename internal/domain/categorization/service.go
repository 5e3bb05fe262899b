// Package categorization assigns spending categories to reconstructed
// ledger movements. Rules come from a Store (YAML file or in-memory set);
// matching runs exact-substring first via an Aho-Corasick engine and falls
// back to fuzzy scoring for noisy descriptions the rules almost cover.
package categorization

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
)

// Assignment sources recorded on categorized movements.
const (
	SourceRule  = "rule"  // Exact substring match from the rule engine
	SourceFuzzy = "fuzzy" // Similarity match above the fuzzy threshold
)

// Assignment is the category decision for one movement description.
type Assignment struct {
	Category    string
	Subcategory string
	Source      string
	RuleID      uuid.UUID
}

// Service handles movement categorization logic.
type Service struct {
	store     Store
	logger    *slog.Logger
	threshold int

	loadMu sync.Mutex
	loaded bool

	engine *Engine
	fuzzy  *FuzzyMatcher
}

// NewService creates a categorization service backed by a rule store. Rules
// are loaded lazily on first use; call Reload to pick up store changes.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		logger:    logger,
		threshold: DefaultFuzzyThreshold,
		engine:    NewEngine(nil),
		fuzzy:     NewFuzzyMatcher(nil),
	}
}

// WithFuzzyThreshold overrides the minimum fuzzy similarity score.
func (s *Service) WithFuzzyThreshold(threshold int) *Service {
	if threshold > 0 {
		s.threshold = threshold
	}
	return s
}

// Reload fetches the rule set from the store and rebuilds both matchers.
func (s *Service) Reload(ctx context.Context) error {
	rules, err := s.store.Rules(ctx)
	if err != nil {
		return fmt.Errorf("load categorization rules: %w", err)
	}

	s.engine.Build(rules)
	s.fuzzy.Build(rules)

	s.loadMu.Lock()
	s.loaded = true
	s.loadMu.Unlock()

	s.logger.Debug("categorization rules loaded", "rules", len(rules))
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.loadMu.Lock()
	loaded := s.loaded
	s.loadMu.Unlock()

	if loaded {
		return nil
	}
	return s.Reload(ctx)
}

// Apply categorizes every movement of a reconstructed ledger in place.
// Movements with no matching rule keep nil category fields.
func (s *Service) Apply(ctx context.Context, st *statement.BankStatement) error {
	if st == nil {
		return nil
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	assigned := 0
	for ai := range st.Accounts {
		txs := st.Accounts[ai].Transactions
		for ti := range txs {
			assignment := s.Categorize(txs[ti].Description)
			if assignment == nil {
				continue
			}

			category := assignment.Category
			source := assignment.Source
			ruleID := assignment.RuleID
			txs[ti].Category = &category
			txs[ti].CategorySource = &source
			txs[ti].CategoryRuleID = &ruleID
			if assignment.Subcategory != "" {
				subcategory := assignment.Subcategory
				txs[ti].Subcategory = &subcategory
			}
			assigned++
		}
	}

	s.logger.Debug("ledger categorized",
		"movements", st.TransactionCount(),
		"assigned", assigned,
	)
	return nil
}

// Categorize resolves a single description against the loaded rules. The
// exact engine wins over fuzzy matching; nil means no rule applies.
func (s *Service) Categorize(description string) *Assignment {
	if match := s.engine.Match(description); match != nil {
		return &Assignment{
			Category:    match.Category,
			Subcategory: match.Subcategory,
			Source:      SourceRule,
			RuleID:      match.RuleID,
		}
	}

	if match := s.fuzzy.Match(description, s.threshold); match != nil {
		return &Assignment{
			Category:    match.Category,
			Subcategory: match.Subcategory,
			Source:      SourceFuzzy,
			RuleID:      match.RuleID,
		}
	}

	return nil
}
