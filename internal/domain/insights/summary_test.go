package insights_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ledger/internal/domain/insights"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
)

func strPtr(s string) *string { return &s }

func datePtr(t time.Time) *time.Time { return &t }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(day int, desc string, amount string, category string) statement.Transaction {
	t := statement.Transaction{
		Date:        time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      dec(amount),
		Type:        statement.TypeCredit,
		Balance:     decimal.Zero,
	}
	if t.Amount.IsNegative() {
		t.Type = statement.TypeDebit
	}
	if category != "" {
		t.Category = strPtr(category)
	}
	return t
}

func sampleStatement() *statement.BankStatement {
	return &statement.BankStatement{
		Bank:        statement.BankGalicia,
		PeriodStart: datePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		PeriodEnd:   datePtr(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)),
		Accounts: []statement.AccountStatement{
			{
				AccountNumber: "4013179-4 073-1",
				Currency:      "ARS",
				Transactions: []statement.Transaction{
					tx(5, "SUELDO ENERO", "300000.00", "ingresos"),
					tx(10, "PAGO TARJETA VISA", "-50000.00", "tarjetas"),
					tx(12, "DEB. AUT. EDESUR", "-20000.00", "servicios"),
					tx(15, "DEB. AUT. METROGAS", "-10000.00", "servicios"),
					tx(20, "EXTRACCION CAJERO", "-15000.00", ""),
				},
			},
			{
				AccountNumber: "4013179-4 073-2",
				Currency:      "USD",
				Transactions: []statement.Transaction{
					tx(18, "COMPRA MONEDA EXTRANJERA", "120.00", ""),
				},
			},
		},
	}
}

func TestComputeNil(t *testing.T) {
	assert.Nil(t, insights.Compute(nil))
}

func TestComputeCounts(t *testing.T) {
	s := insights.Compute(sampleStatement())
	require.NotNil(t, s)

	assert.Equal(t, statement.BankGalicia, s.Bank)
	assert.Equal(t, 2, s.Accounts)
	assert.Equal(t, 6, s.Movements)
	assert.Equal(t, 0, s.Suspicious)
	assert.Equal(t, 4, s.Categorized)
	assert.InDelta(t, 4.0/6.0, s.CategorizedShare(), 1e-9)
}

func TestComputeTotalsPerCurrency(t *testing.T) {
	s := insights.Compute(sampleStatement())
	require.NotNil(t, s)
	require.Len(t, s.Totals, 2)

	ars := s.Totals[0]
	assert.Equal(t, "ARS", ars.Currency)
	assert.True(t, ars.Credits.Equal(dec("300000.00")), "credits %s", ars.Credits)
	assert.True(t, ars.Debits.Equal(dec("95000.00")), "debits %s", ars.Debits)
	assert.True(t, ars.Net.Equal(dec("205000.00")), "net %s", ars.Net)

	usd := s.Totals[1]
	assert.Equal(t, "USD", usd.Currency)
	assert.True(t, usd.Credits.Equal(dec("120.00")))
	assert.True(t, usd.Debits.Equal(decimal.Zero))
}

func TestComputeTopCategories(t *testing.T) {
	s := insights.Compute(sampleStatement())
	require.NotNil(t, s)
	require.Len(t, s.TopCategories, 2)

	// Only ARS debits count; the categorized breakdown is sorted by amount.
	top := s.TopCategories[0]
	assert.Equal(t, "tarjetas", top.Category)
	assert.True(t, top.Amount.Equal(dec("50000.00")))
	assert.Equal(t, 1, top.Count)
	assert.InDelta(t, 52.63, top.Percent, 0.01)

	second := s.TopCategories[1]
	assert.Equal(t, "servicios", second.Category)
	assert.True(t, second.Amount.Equal(dec("30000.00")))
	assert.Equal(t, 2, second.Count)
}

func TestComputeLargestMovement(t *testing.T) {
	s := insights.Compute(sampleStatement())
	require.NotNil(t, s)
	require.NotNil(t, s.Largest)

	assert.Equal(t, "SUELDO ENERO", s.Largest.Description)
	assert.True(t, s.Largest.Amount.Equal(dec("300000.00")))
	assert.Equal(t, "ARS", s.Largest.Currency)
	assert.Equal(t, "ingresos", s.Largest.Category)
}

func TestComputeEmptyStatement(t *testing.T) {
	s := insights.Compute(&statement.BankStatement{Bank: statement.BankBBVA})
	require.NotNil(t, s)

	assert.Equal(t, 0, s.Accounts)
	assert.Equal(t, 0, s.Movements)
	assert.Empty(t, s.Totals)
	assert.Empty(t, s.TopCategories)
	assert.Nil(t, s.Largest)
	assert.Zero(t, s.CategorizedShare())

	// Even an empty document produces the counts line.
	highlights := s.Highlights()
	require.Len(t, highlights, 1)
	assert.Equal(t, "0 account(s), 0 movement(s)", highlights[0])
}

func TestHighlights(t *testing.T) {
	st := sampleStatement()
	st.Accounts[0].Transactions[4].IsSuspicious = true

	s := insights.Compute(st)
	require.NotNil(t, s)

	highlights := s.Highlights()
	require.GreaterOrEqual(t, len(highlights), 5)

	assert.Equal(t, "2 account(s), 6 movement(s), 1 flagged suspicious", highlights[0])
	assert.Contains(t, highlights[1], "ARS: credits ")
	assert.Contains(t, highlights[2], "USD: credits ")
	assert.Contains(t, highlights[3], "67% of movements categorized")

	var topLine, largestLine string
	for _, h := range highlights {
		if len(h) >= 13 && h[:13] == "Top spending:" {
			topLine = h
		}
		if len(h) >= 17 && h[:17] == "Largest movement:" {
			largestLine = h
		}
	}
	assert.Contains(t, topLine, "tarjetas")
	assert.Contains(t, largestLine, "SUELDO ENERO")
	assert.Contains(t, largestLine, "05/01/2024")
}

func TestTopCategoryLimit(t *testing.T) {
	st := &statement.BankStatement{
		Bank: statement.BankSantander,
		Accounts: []statement.AccountStatement{
			{
				AccountNumber: "000-123456/7",
				Currency:      "ARS",
			},
		},
	}
	categories := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, cat := range categories {
		st.Accounts[0].Transactions = append(st.Accounts[0].Transactions,
			tx(i+1, "MOVIMIENTO "+cat, "-100.00", cat))
	}

	s := insights.Compute(st)
	require.NotNil(t, s)
	assert.Len(t, s.TopCategories, 5)

	// Equal amounts fall back to name order for a stable display.
	assert.Equal(t, "a", s.TopCategories[0].Category)
	assert.Equal(t, "e", s.TopCategories[4].Category)
}
