package categorization

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// SearchDocument is the indexed form of a categorization rule.
type SearchDocument struct {
	ID          string  `json:"id"`
	Pattern     string  `json:"pattern"`     // Original pattern (for exact matching)
	Category    string  `json:"category"`    // Assigned category slug
	Subcategory string  `json:"subcategory"` // Optional subcategory slug
	Description string  `json:"description"` // Full text blob for free-text search
	Priority    float64 `json:"priority"`    // For boosting results
}

// SearchResult represents a search hit with relevance score.
type SearchResult struct {
	Document SearchDocument
	Score    float64 // Relevance score from Bleve
	RuleID   uuid.UUID
}

// SearchIndex provides full-text search over categorization rules using
// Bleve. The rules CLI uses it to answer "which rule would hit this
// description" without walking the whole rule set by hand.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
	path    string // Path to index storage (empty for in-memory)
}

// NewSearchIndex creates a new search index.
// If path is empty, creates an in-memory index.
// If path is provided, creates/opens a persistent index.
func NewSearchIndex(path string) (*SearchIndex, error) {
	si := &SearchIndex{path: path}

	var index bleve.Index
	var err error

	indexMapping := buildIndexMapping()

	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
				return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
			}
			index, err = bleve.New(path, indexMapping)
		} else {
			index, err = bleve.Open(path)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	si.index = index
	return si, nil
}

// buildIndexMapping creates the Bleve index mapping for rule documents.
// Pattern and category fields are exact-match, the description blob is
// tokenized for free-text queries, priority stays numeric.
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	numericFieldMapping := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("pattern", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("subcategory", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("priority", numericFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name

	return indexMapping
}

// IndexRules indexes a rule set for search in a single batch. Re-indexing a
// rule with the same ID replaces the previous document.
func (si *SearchIndex) IndexRules(rules []Rule) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()

	for _, rule := range rules {
		doc := SearchDocument{
			ID:          fmt.Sprintf("rule_%s", rule.ID.String()),
			Pattern:     rule.Pattern,
			Category:    rule.Category,
			Subcategory: rule.Subcategory,
			Description: strings.TrimSpace(fmt.Sprintf("%s %s %s", rule.Pattern, rule.Category, rule.Subcategory)),
			Priority:    float64(rule.Priority),
		}

		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index rule %q: %w", rule.Pattern, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}

	return nil
}

// Search performs a full-text search and returns matching rules
func (si *SearchIndex) Search(query string, limit int) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	// Match query handles tokenization and typo tolerance in one shot.
	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return si.convertResults(searchResults), nil
}

// SearchByCategory finds all rules assigned to a specific category
func (si *SearchIndex) SearchByCategory(category string, limit int) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	termQuery := bleve.NewTermQuery(category)
	termQuery.SetField("category")

	searchRequest := bleve.NewSearchRequest(termQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("category search failed: %w", err)
	}

	return si.convertResults(searchResults), nil
}

// convertResults converts Bleve search results to our SearchResult type
func (si *SearchIndex) convertResults(searchResults *bleve.SearchResult) []SearchResult {
	results := make([]SearchResult, 0, len(searchResults.Hits))

	for _, hit := range searchResults.Hits {
		doc := SearchDocument{
			ID: hit.ID,
		}

		if pattern, ok := hit.Fields["pattern"].(string); ok {
			doc.Pattern = pattern
		}
		if category, ok := hit.Fields["category"].(string); ok {
			doc.Category = category
		}
		if subcategory, ok := hit.Fields["subcategory"].(string); ok {
			doc.Subcategory = subcategory
		}
		if description, ok := hit.Fields["description"].(string); ok {
			doc.Description = description
		}
		if priority, ok := hit.Fields["priority"].(float64); ok {
			doc.Priority = priority
		}

		result := SearchResult{
			Document: doc,
			Score:    hit.Score,
		}

		if id, err := uuid.Parse(strings.TrimPrefix(hit.ID, "rule_")); err == nil {
			result.RuleID = id
		}

		results = append(results, result)
	}

	return results
}

// Close closes the index
func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	if si.index != nil {
		return si.index.Close()
	}
	return nil
}

// DocumentCount returns the number of documents in the index
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	return si.index.DocCount()
}
