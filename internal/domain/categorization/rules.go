package categorization

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Rule maps a description pattern onto a ledger category. Patterns are
// matched case-insensitively as substrings of the canonical description;
// higher priority wins when several rules hit the same movement.
type Rule struct {
	ID          uuid.UUID
	Pattern     string
	Category    string
	Subcategory string
	Priority    int
}

// Store supplies the rule set the matchers are built from.
type Store interface {
	Rules(ctx context.Context) ([]Rule, error)
}

// MemoryStore is a Store backed by an in-memory slice. Useful for tests and
// for callers that assemble rules programmatically.
type MemoryStore struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewMemoryStore creates a store holding the given rules.
func NewMemoryStore(rules ...Rule) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(rules)
	return s
}

// Rules returns a copy of the stored rule set.
func (s *MemoryStore) Rules(_ context.Context) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// Add appends one rule. Rules without an ID get a stable pattern-derived one.
func (s *MemoryStore) Add(rule Rule) {
	if rule.ID == uuid.Nil {
		rule.ID = RuleID(rule.Pattern)
	}
	s.mu.Lock()
	s.rules = append(s.rules, rule)
	s.mu.Unlock()
}

// Replace swaps the whole rule set.
func (s *MemoryStore) Replace(rules []Rule) {
	fresh := make([]Rule, len(rules))
	copy(fresh, rules)
	for i := range fresh {
		if fresh[i].ID == uuid.Nil {
			fresh[i].ID = RuleID(fresh[i].Pattern)
		}
	}
	s.mu.Lock()
	s.rules = fresh
	s.mu.Unlock()
}

// YAMLStore reads rules from a YAML file on every call, so a long-running
// process picks up edits on its next reload.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a store reading from the given file path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Rules loads and validates the rule file.
func (s *YAMLStore) Rules(_ context.Context) ([]Rule, error) {
	return LoadRulesFile(s.path)
}

// Path returns the backing file location.
func (s *YAMLStore) Path() string { return s.path }

// rulesFile is the YAML document schema:
//
//	rules:
//	  - pattern: TARJETA VISA
//	    category: tarjetas
//	    subcategory: visa
//	    priority: 10
type rulesFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	ID          string `yaml:"id,omitempty"`
	Pattern     string `yaml:"pattern"`
	Category    string `yaml:"category"`
	Subcategory string `yaml:"subcategory,omitempty"`
	Priority    int    `yaml:"priority,omitempty"`
}

// LoadRulesFile reads and parses a YAML rule file.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes and validates a YAML rule document.
func ParseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	for i, e := range f.Rules {
		rule, err := e.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (e ruleEntry) toRule() (Rule, error) {
	pattern := strings.TrimSpace(e.Pattern)
	if pattern == "" {
		return Rule{}, errors.New("pattern is required")
	}
	category := strings.TrimSpace(e.Category)
	if category == "" {
		return Rule{}, errors.New("category is required")
	}

	id := RuleID(pattern)
	if e.ID != "" {
		parsed, err := uuid.Parse(e.ID)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid id %q: %w", e.ID, err)
		}
		id = parsed
	}

	return Rule{
		ID:          id,
		Pattern:     pattern,
		Category:    category,
		Subcategory: strings.TrimSpace(e.Subcategory),
		Priority:    e.Priority,
	}, nil
}

// RuleID derives a stable identifier from a pattern. Rules declared without
// an explicit id keep the same identity across loads, so exported ledgers
// stay comparable between runs.
func RuleID(pattern string) uuid.UUID {
	normalized := strings.ToUpper(strings.TrimSpace(pattern))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(normalized))
}
