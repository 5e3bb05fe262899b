// Package insights derives human-readable aggregates from a reconstructed
// ledger: per-currency totals, category breakdown and highlight lines for
// the CLI summary block.
package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// topCategoryLimit caps the category breakdown for display.
const topCategoryLimit = 5

// CurrencyTotals aggregates the movements of one currency.
type CurrencyTotals struct {
	Currency string
	Credits  decimal.Decimal
	Debits   decimal.Decimal // Absolute sum of debit movements
	Net      decimal.Decimal
}

// CategorySpend represents debit spending attributed to one category.
type CategorySpend struct {
	Category string
	Amount   decimal.Decimal // Absolute debit sum
	Count    int
	Percent  float64 // Share of the currency's total debit spend
}

// Movement highlights a single notable transaction.
type Movement struct {
	Description string
	Amount      decimal.Decimal
	Currency    string
	Date        time.Time
	Category    string // Empty when uncategorized
}

// Summary contains the computed aggregates for one statement document.
type Summary struct {
	Bank        statement.Bank
	PeriodStart *time.Time
	PeriodEnd   *time.Time

	Accounts    int
	Movements   int
	Suspicious  int
	Categorized int

	// Totals per currency, in first-seen account order.
	Totals []CurrencyTotals

	// TopCategories breaks down debit spending in the primary currency
	// (the first account's); cross-currency sums would be meaningless.
	TopCategories []CategorySpend

	// Largest is the movement with the biggest absolute amount.
	Largest *Movement
}

// Compute builds the summary for a reconstructed ledger. A nil statement
// yields a nil summary.
func Compute(st *statement.BankStatement) *Summary {
	if st == nil {
		return nil
	}

	s := &Summary{
		Bank:        st.Bank,
		PeriodStart: st.PeriodStart,
		PeriodEnd:   st.PeriodEnd,
		Accounts:    len(st.Accounts),
		Movements:   st.TransactionCount(),
		Suspicious:  st.SuspiciousCount(),
	}

	totalsByCurrency := make(map[string]*CurrencyTotals)
	currencyOrder := make([]string, 0, 2)

	primaryCurrency := ""
	var largest *Movement
	largestAbs := decimal.Zero

	for ai := range st.Accounts {
		acct := &st.Accounts[ai]
		currency := acct.Currency
		if currency == "" {
			currency = "ARS"
		}
		if primaryCurrency == "" {
			primaryCurrency = currency
		}

		totals, ok := totalsByCurrency[currency]
		if !ok {
			totals = &CurrencyTotals{Currency: currency}
			totalsByCurrency[currency] = totals
			currencyOrder = append(currencyOrder, currency)
		}
		totals.Credits = totals.Credits.Add(acct.TotalCredits())
		totals.Debits = totals.Debits.Add(acct.TotalDebits())
		totals.Net = totals.Net.Add(acct.NetChange())

		for ti := range acct.Transactions {
			tx := &acct.Transactions[ti]
			if tx.Category != nil {
				s.Categorized++
			}

			abs := tx.Amount.Abs()
			if largest == nil || abs.GreaterThan(largestAbs) {
				category := ""
				if tx.Category != nil {
					category = *tx.Category
				}
				largest = &Movement{
					Description: tx.Description,
					Amount:      tx.Amount,
					Currency:    currency,
					Date:        tx.Date,
					Category:    category,
				}
				largestAbs = abs
			}
		}
	}

	for _, currency := range currencyOrder {
		s.Totals = append(s.Totals, *totalsByCurrency[currency])
	}
	s.Largest = largest
	s.TopCategories = topCategories(st, primaryCurrency, totalsByCurrency)

	return s
}

// topCategories aggregates categorized debit spending in the primary
// currency, largest first.
func topCategories(st *statement.BankStatement, currency string, totals map[string]*CurrencyTotals) []CategorySpend {
	if currency == "" {
		return nil
	}

	byCategory := make(map[string]*CategorySpend)
	for ai := range st.Accounts {
		acct := &st.Accounts[ai]
		acctCurrency := acct.Currency
		if acctCurrency == "" {
			acctCurrency = "ARS"
		}
		if acctCurrency != currency {
			continue
		}

		for ti := range acct.Transactions {
			tx := &acct.Transactions[ti]
			if tx.Category == nil || tx.Type != statement.TypeDebit {
				continue
			}
			entry, ok := byCategory[*tx.Category]
			if !ok {
				entry = &CategorySpend{Category: *tx.Category}
				byCategory[*tx.Category] = entry
			}
			entry.Amount = entry.Amount.Add(tx.Amount.Abs())
			entry.Count++
		}
	}
	if len(byCategory) == 0 {
		return nil
	}

	totalDebits := decimal.Zero
	if t, ok := totals[currency]; ok {
		totalDebits = t.Debits
	}

	categories := make([]CategorySpend, 0, len(byCategory))
	for _, entry := range byCategory {
		if totalDebits.IsPositive() {
			entry.Percent = entry.Amount.Div(totalDebits).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		categories = append(categories, *entry)
	}

	sort.Slice(categories, func(i, j int) bool {
		if !categories[i].Amount.Equal(categories[j].Amount) {
			return categories[i].Amount.GreaterThan(categories[j].Amount)
		}
		return categories[i].Category < categories[j].Category
	})

	if len(categories) > topCategoryLimit {
		categories = categories[:topCategoryLimit]
	}
	return categories
}

// CategorizedShare returns the fraction of movements carrying a category.
func (s *Summary) CategorizedShare() float64 {
	if s == nil || s.Movements == 0 {
		return 0
	}
	return float64(s.Categorized) / float64(s.Movements)
}

// Highlights creates human-readable summary lines for the CLI.
func (s *Summary) Highlights() []string {
	if s == nil {
		return nil
	}

	var highlights []string

	line := fmt.Sprintf("%d account(s), %d movement(s)", s.Accounts, s.Movements)
	if s.Suspicious > 0 {
		line += fmt.Sprintf(", %d flagged suspicious", s.Suspicious)
	}
	highlights = append(highlights, line)

	for _, t := range s.Totals {
		highlights = append(highlights, fmt.Sprintf("%s: credits %s, debits %s, net %s",
			t.Currency,
			money.Display(t.Credits, t.Currency),
			money.Display(t.Debits, t.Currency),
			money.Display(t.Net, t.Currency),
		))
	}

	if s.Movements > 0 && s.Categorized > 0 {
		highlights = append(highlights, fmt.Sprintf("%.0f%% of movements categorized", s.CategorizedShare()*100))
	}

	if len(s.TopCategories) > 0 {
		top := s.TopCategories[0]
		highlights = append(highlights, fmt.Sprintf("Top spending: %s (%s)",
			top.Category, money.Display(top.Amount, s.Totals[0].Currency)))
	}

	if s.Largest != nil {
		highlights = append(highlights, fmt.Sprintf("Largest movement: %s %s on %s",
			s.Largest.Description,
			money.Display(s.Largest.Amount, s.Largest.Currency),
			s.Largest.Date.Format("02/01/2006"),
		))
	}

	return highlights
}
