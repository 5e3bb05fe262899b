package categorization

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchIndex_InMemory(t *testing.T) {
	index, err := NewSearchIndex("")
	require.NoError(t, err)
	defer index.Close()

	rules := []Rule{
		testRule("TARJETA VISA", "tarjetas", "visa", 10),
		testRule("EDESUR", "servicios", "electricidad", 5),
		testRule("MERCADOPAGO", "transferencias", "billeteras", 5),
	}

	err = index.IndexRules(rules)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	t.Run("basic search", func(t *testing.T) {
		results, err := index.Search("edesur", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "EDESUR", results[0].Document.Pattern)
		assert.Equal(t, "servicios", results[0].Document.Category)
		assert.Equal(t, RuleID("EDESUR"), results[0].RuleID)
	})

	t.Run("search tolerates a typo", func(t *testing.T) {
		results, err := index.Search("mercadopaga", 10) // Last letter off
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(results), 1)
		assert.Equal(t, "MERCADOPAGO", results[0].Document.Pattern)
	})

	t.Run("search by category", func(t *testing.T) {
		results, err := index.SearchByCategory("tarjetas", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "TARJETA VISA", results[0].Document.Pattern)
		assert.Equal(t, float64(10), results[0].Document.Priority)
	})

	t.Run("search by category with no rules", func(t *testing.T) {
		results, err := index.SearchByCategory("inexistente", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSearchIndex_ReindexReplacesDocuments(t *testing.T) {
	index, err := NewSearchIndex("")
	require.NoError(t, err)
	defer index.Close()

	rule := testRule("FARMACIA", "salud", "", 0)
	require.NoError(t, index.IndexRules([]Rule{rule}))

	// Same pattern, updated category. RuleID is derived from the pattern so
	// the document ID stays the same and the entry is replaced, not added.
	rule.Category = "farmacia"
	require.NoError(t, index.IndexRules([]Rule{rule}))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	results, err := index.SearchByCategory("farmacia", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "FARMACIA", results[0].Document.Pattern)
}

func TestSearchIndex_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.bleve")

	index, err := NewSearchIndex(path)
	require.NoError(t, err)

	rules := []Rule{testRule("NETFLIX", "entretenimiento", "streaming", 0)}
	require.NoError(t, index.IndexRules(rules))
	require.NoError(t, index.Close())

	// Reopening the same path sees the previously indexed rules.
	reopened, err := NewSearchIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	results, err := reopened.Search("netflix", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "entretenimiento", results[0].Document.Category)
}

// Benchmark search operations
func BenchmarkSearch(b *testing.B) {
	index, _ := NewSearchIndex("")
	defer index.Close()

	rules := make([]Rule, 1000)
	for i := 0; i < 1000; i++ {
		rules[i] = testRule(fmt.Sprintf("COMERCIO_%d", i), fmt.Sprintf("categoria_%d", i), "", 0)
	}
	rules[500] = testRule("TARJETA VISA", "tarjetas", "visa", 0)

	_ = index.IndexRules(rules)

	b.ResetTimer()

	b.Run("BasicSearch", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = index.Search("tarjeta", 10)
		}
	})

	b.Run("CategorySearch", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = index.SearchByCategory("tarjetas", 10)
		}
	})
}

func BenchmarkIndexing(b *testing.B) {
	b.Run("Index1000Rules", func(b *testing.B) {
		rules := make([]Rule, 1000)
		for i := 0; i < 1000; i++ {
			rules[i] = testRule(fmt.Sprintf("COMERCIO_%d", i), fmt.Sprintf("categoria_%d", i), "", 0)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			index, _ := NewSearchIndex("")
			_ = index.IndexRules(rules)
			index.Close()
		}
	})
}

// Compare the three matching approaches on the same rule set
func BenchmarkCompare_All_Approaches(b *testing.B) {
	rules := make([]Rule, 1000)
	for i := 0; i < 1000; i++ {
		rules[i] = testRule(fmt.Sprintf("COMERCIO_%d", i), fmt.Sprintf("categoria_%d", i), "", 0)
	}
	rules[500] = testRule("TARJETA VISA", "tarjetas", "visa", 0)

	engine := NewEngine(rules)
	fuzzyMatcher := NewFuzzyMatcher(rules)
	searchIndex, _ := NewSearchIndex("")
	_ = searchIndex.IndexRules(rules)
	defer searchIndex.Close()

	input := "PAGO TARJETA VISA CUOTA 03/12"

	b.Run("AhoCorasick_Exact", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = engine.Match(input)
		}
	})

	b.Run("FuzzyMatcher_70", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = fuzzyMatcher.Match(input, 70)
		}
	})

	b.Run("Bleve_Search", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = searchIndex.Search("tarjeta visa", 1)
		}
	})
}
