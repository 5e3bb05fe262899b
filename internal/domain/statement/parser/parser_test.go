package parser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

func mustParse(t *testing.T, p Parser, text string) *ParseResult {
	t.Helper()
	res, err := p.Parse(context.Background(), text, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.Statement)
	return res
}

func amountEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

// ============================================================================
// Contract behavior shared by every bank
// ============================================================================

func TestParseEmptyDocument(t *testing.T) {
	for _, p := range All(Config{}) {
		t.Run(string(p.Bank()), func(t *testing.T) {
			res := mustParse(t, p, "")

			assert.Equal(t, p.Bank(), res.Statement.Bank)
			assert.Empty(t, res.Statement.Accounts)
			require.Len(t, res.Warnings, 1)
			assert.Contains(t, res.Warnings[0], "[no-date-anchors]")
		})
	}
}

func TestParseHeadersOnlyDocument(t *testing.T) {
	text := strings.Join([]string{
		"RESUMEN DE CUENTA",
		"FECHA DESCRIPCION ORIGEN DEBITOS CREDITOS SALDO",
	}, "\n")

	res := mustParse(t, NewGalicia(Config{}), text)

	assert.Empty(t, res.Statement.Accounts)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "[no-date-anchors]")
}

func TestParseWithoutAccountMarkersScansWholeDocument(t *testing.T) {
	text := "15/01/24 PAGO SERVICIO LUZ 1.500,00 8.500,00\n"

	res := mustParse(t, NewGalicia(Config{}), text)

	require.Len(t, res.Statement.Accounts, 1)
	acc := res.Statement.Accounts[0]
	assert.Empty(t, acc.AccountNumber)
	assert.Equal(t, money.ARS, acc.Currency)
	require.Len(t, acc.Transactions, 1)

	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "no account markers found")
}

func TestParseCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewGalicia(Config{}).Parse(ctx, "15/01/24 PAGO LUZ 1.500,00 8.500,00\n", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res, "a cancelled parse returns no partial result")
}

func TestParseProgressCallback(t *testing.T) {
	text := galiciaFixture()

	type call struct {
		stage          string
		current, total int
	}
	var calls []call
	p := NewGalicia(Config{})
	res, err := p.Parse(context.Background(), text, func(stage string, current, total int) {
		calls = append(calls, call{stage, current, total})
	})
	require.NoError(t, err)

	require.NotEmpty(t, calls)
	assert.Equal(t, call{"accounts", 1, 2}, calls[0])
	assert.Equal(t, call{"accounts", 2, 2}, calls[len(calls)-1])

	// The callback is observational only: output must match a silent parse.
	silent := mustParse(t, p, text)
	assert.Equal(t, silent.Statement, res.Statement)
	assert.Equal(t, silent.Warnings, res.Warnings)
}

func TestForBank(t *testing.T) {
	tests := []struct {
		name string
		want statement.Bank
		ok   bool
	}{
		{"galicia", statement.BankGalicia, true},
		{"GALICIA", statement.BankGalicia, true},
		{" Supervielle ", statement.BankSupervielle, true},
		{"santander", statement.BankSantander, true},
		{"BBVA", statement.BankBBVA, true},
		{"hsbc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		p, ok := ForBank(tt.name, Config{})
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.want, p.Bank())
		}
	}
}

func TestAllCoversEveryBank(t *testing.T) {
	parsers := All(Config{})
	require.Len(t, parsers, 4)

	seen := map[statement.Bank]bool{}
	for _, p := range parsers {
		seen[p.Bank()] = true
	}
	assert.Len(t, seen, 4)
}

// ============================================================================
// Galicia
// ============================================================================

func galiciaFixture() string {
	return strings.Join([]string{
		"RESUMEN DE CUENTA",
		"NUMERO DE CUENTA: 4013179-4 073-1",
		"PERIODO 01/01/2024 AL 31/01/2024",
		"CUENTA CORRIENTE EN PESOS",
		"SALDO DEL PERIODO ANTERIOR 10.000,00",
		"15/01/24 PAGO TARJETAVISA 1.500,00 8.500,00",
		"18/01/24 TRANSF. RECIBIDA CVU 2.000,00 10.500,00",
		"SALDO PERIODO ACTUAL 10.500,00",
		"CUENTA CORRIENTE EN DOLARES",
		"SALDO DEL PERIODO ANTERIOR 100,00",
		"20/01/24 COMPRA MONEDA EXTRANJERA 50,00 50,00",
		"SALDO PERIODO ACTUAL 50,00",
	}, "\n") + "\n"
}

func TestGaliciaMultiCurrencyStatement(t *testing.T) {
	res := mustParse(t, NewGalicia(Config{}), galiciaFixture())

	stmt := res.Statement
	assert.Equal(t, statement.BankGalicia, stmt.Bank)
	require.NotNil(t, stmt.PeriodStart)
	require.NotNil(t, stmt.PeriodEnd)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), *stmt.PeriodStart)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), *stmt.PeriodEnd)

	require.Len(t, stmt.Accounts, 2)

	pesos := stmt.Accounts[0]
	assert.Equal(t, "4013179-4 073-1", pesos.AccountNumber, "the cover account number attaches to each section")
	assert.Equal(t, "CUENTA CORRIENTE EN PESOS", pesos.Label)
	assert.Equal(t, money.ARS, pesos.Currency)
	require.NotNil(t, pesos.OpeningBalance)
	amountEqual(t, "10000", *pesos.OpeningBalance)
	require.NotNil(t, pesos.ClosingBalance)
	amountEqual(t, "10500", *pesos.ClosingBalance)

	require.Len(t, pesos.Transactions, 2)

	visa := pesos.Transactions[0]
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), visa.Date)
	assert.Equal(t, "PAGO TARJETA VISA", visa.Description, "fused TARJETAVISA is canonicalized")
	assert.Equal(t, "PAGO TARJETAVISA", visa.OriginalDescription)
	amountEqual(t, "-1500", visa.Amount)
	assert.Equal(t, statement.TypeDebit, visa.Type, "an unsigned PAGO amount is inferred as a debit")
	amountEqual(t, "8500", visa.Balance)

	transf := pesos.Transactions[1]
	assert.Equal(t, "TRANSFERENCIA RECIBIDA CVU", transf.Description)
	assert.Equal(t, "TRANSF. RECIBIDA CVU", transf.OriginalDescription)
	amountEqual(t, "2000", transf.Amount)
	assert.Equal(t, statement.TypeCredit, transf.Type)

	dolares := stmt.Accounts[1]
	assert.Equal(t, "4013179-4 073-1", dolares.AccountNumber)
	assert.Equal(t, money.USD, dolares.Currency)
	require.NotNil(t, dolares.OpeningBalance)
	amountEqual(t, "100", *dolares.OpeningBalance)
	require.Len(t, dolares.Transactions, 1)
	amountEqual(t, "-50", dolares.Transactions[0].Amount)
	amountEqual(t, "50", dolares.Transactions[0].Balance)

	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "detected 2 account section(s)")
}

func TestGaliciaDiscardsUnparseableBlock(t *testing.T) {
	text := strings.Join([]string{
		"NUMERO DE CUENTA: 4013179-4",
		"CUENTA CORRIENTE EN PESOS",
		"SALDO DEL PERIODO ANTERIOR 10.000,00",
		"15/01/24 AJUSTE SIN IMPORTE",
		"16/01/24 PAGO LUZ 1.000,00 9.000,00",
		"SALDO PERIODO ACTUAL 9.000,00",
	}, "\n")

	res := mustParse(t, NewGalicia(Config{}), text)

	require.Len(t, res.Statement.Accounts, 1)
	require.Len(t, res.Statement.Accounts[0].Transactions, 1)
	assert.Equal(t, "PAGO LUZ", res.Statement.Accounts[0].Transactions[0].Description)

	var skipped bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "[skipped-block]") && strings.Contains(w, "15/01/2024") {
			skipped = true
		}
	}
	assert.True(t, skipped, "the tokenless block must be reported, warnings: %v", res.Warnings)
}

func TestGaliciaDerivesPeriodFromTransactions(t *testing.T) {
	text := strings.Join([]string{
		"NUMERO DE CUENTA: 4013179-4",
		"CUENTA CORRIENTE EN PESOS",
		"SALDO DEL PERIODO ANTERIOR 10.000,00",
		"05/01/24 PAGO LUZ 1.000,00 9.000,00",
		"28/01/24 DEPOSITO EFECTIVO 3.000,00 12.000,00",
		"SALDO PERIODO ACTUAL 12.000,00",
	}, "\n")

	res := mustParse(t, NewGalicia(Config{}), text)

	require.NotNil(t, res.Statement.PeriodStart)
	require.NotNil(t, res.Statement.PeriodEnd)
	assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), *res.Statement.PeriodStart)
	assert.Equal(t, time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC), *res.Statement.PeriodEnd)
}

// ============================================================================
// Supervielle
// ============================================================================

func TestSupervielleStatement(t *testing.T) {
	text := strings.Join([]string{
		"BANCO SUPERVIELLE S.A.",
		"PERIODO DEL 01/02/24 AL 29/02/24",
		"CAJA DE AHORRO Nº 456-789123/4",
		"SALDO INICIAL 5.000,00",
		"MOVIMIENTOS",
		"FECHA CONCEPTO REFERENCIA IMPORTE SALDO",
		"05/02/24 ACREDITACION HABERES FEBRERO 150.000,00 155.000,00",
		"10/02/24 EXTRACCION CAJERO AUTOMATICO -20.000,00 135.000,00",
		"12/02/24 IMP. DEBITOS Y CREDITOS -120,00 134.880,00",
		"SALDO TOTAL 134.880,00",
		"CONTINUA EN PAGINA 2",
	}, "\n")

	res := mustParse(t, NewSupervielle(Config{}), text)

	stmt := res.Statement
	assert.Equal(t, statement.BankSupervielle, stmt.Bank)
	require.NotNil(t, stmt.PeriodStart)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), *stmt.PeriodStart)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), *stmt.PeriodEnd)

	require.Len(t, stmt.Accounts, 1)
	acc := stmt.Accounts[0]
	assert.Equal(t, "456-789123/4", acc.AccountNumber)
	assert.Equal(t, "CAJA DE AHORRO", acc.Label)
	assert.Equal(t, money.ARS, acc.Currency)
	require.NotNil(t, acc.OpeningBalance)
	amountEqual(t, "5000", *acc.OpeningBalance)
	require.NotNil(t, acc.ClosingBalance)
	amountEqual(t, "134880", *acc.ClosingBalance)

	require.Len(t, acc.Transactions, 3)

	amountEqual(t, "150000", acc.Transactions[0].Amount)
	assert.Equal(t, statement.TypeCredit, acc.Transactions[0].Type)

	extr := acc.Transactions[1]
	amountEqual(t, "-20000", extr.Amount)
	assert.Equal(t, statement.TypeDebit, extr.Type, "an explicit minus needs no keyword inference")
	amountEqual(t, "135000", extr.Balance)

	imp := acc.Transactions[2]
	assert.Equal(t, "IMPUESTO DEBITOS Y CREDITOS", imp.Description, "IMP. abbreviation expands")
	assert.Equal(t, "IMP. DEBITOS Y CREDITOS", imp.OriginalDescription)
	amountEqual(t, "-120", imp.Amount)
}

func TestSupervielleDollarAccount(t *testing.T) {
	text := strings.Join([]string{
		"CUENTA CORRIENTE EN U$S Nº 99-111222/3",
		"SALDO INICIAL 1.000,00",
		"MOVIMIENTOS",
		"07/02/24 COMPRA BILLETES 200,00 800,00",
		"SALDO TOTAL 800,00",
	}, "\n")

	res := mustParse(t, NewSupervielle(Config{}), text)

	require.Len(t, res.Statement.Accounts, 1)
	acc := res.Statement.Accounts[0]
	assert.Equal(t, money.USD, acc.Currency)
	assert.Equal(t, "99-111222/3", acc.AccountNumber)
	require.Len(t, acc.Transactions, 1)
	amountEqual(t, "-200", acc.Transactions[0].Amount)
}

// ============================================================================
// Santander
// ============================================================================

func TestSantanderStatement(t *testing.T) {
	text := strings.Join([]string{
		"BANCO SANTANDER RIO S.A. CUIT 30-50000845-4",
		"RESUMEN DESDE 01/01/2024 HASTA 31/01/2024",
		"CUENTA UNICA Nº 123-456789/0",
		"DETALLE DE MOVIMIENTOS",
		"SALDO AL INICIO 11.500,00",
		"15/01/2024 PAGO TARJETA VISA 1.500,00 10.000,00",
		"SALDO AL CIERRE 10.000,00",
	}, "\n")

	res := mustParse(t, NewSantander(Config{}), text)

	stmt := res.Statement
	assert.Equal(t, statement.BankSantander, stmt.Bank)
	require.NotNil(t, stmt.PeriodStart)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), *stmt.PeriodStart)

	require.Len(t, stmt.Accounts, 1)
	acc := stmt.Accounts[0]
	assert.Equal(t, "123-456789/0", acc.AccountNumber)
	assert.Equal(t, "CUENTA UNICA", acc.Label)
	assert.Equal(t, money.ARS, acc.Currency)
	require.NotNil(t, acc.OpeningBalance)
	amountEqual(t, "11500", *acc.OpeningBalance)
	require.NotNil(t, acc.ClosingBalance)
	amountEqual(t, "10000", *acc.ClosingBalance)

	require.Len(t, acc.Transactions, 1)
	tx := acc.Transactions[0]
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, "PAGO TARJETA VISA", tx.Description)
	amountEqual(t, "-1500", tx.Amount)
	assert.Equal(t, statement.TypeDebit, tx.Type)
	amountEqual(t, "10000", tx.Balance)
}

func TestSantanderDollarAccount(t *testing.T) {
	text := strings.Join([]string{
		"CUENTA EN U$S Nº 77-888999/1",
		"DETALLE DE MOVIMIENTOS",
		"SALDO AL INICIO 500,00",
		"09/01/24 ACREDITAM. INTERESES 10,00 510,00",
		"SALDO AL CIERRE 510,00",
	}, "\n")

	res := mustParse(t, NewSantander(Config{}), text)

	require.Len(t, res.Statement.Accounts, 1)
	acc := res.Statement.Accounts[0]
	assert.Equal(t, money.USD, acc.Currency)
	require.Len(t, acc.Transactions, 1)

	tx := acc.Transactions[0]
	assert.Equal(t, "ACREDITAMIENTO INTERESES", tx.Description)
	amountEqual(t, "10", tx.Amount)
	assert.Equal(t, statement.TypeCredit, tx.Type)
}

// ============================================================================
// BBVA
// ============================================================================

func TestBBVAStatement(t *testing.T) {
	text := strings.Join([]string{
		"BBVA BANCO FRANCES S.A.",
		"PERIODO: 01/03/2024 - 31/03/2024",
		"CUENTA CORRIENTE EN PESOS NRO. 201-334455/6",
		"DETALLE DE MOVIMIENTOS",
		"SALDO ANTERIOR 20.000,00",
		"05/03/24 PAGOTARJETAVISA CUOTA 03 2.500,00 17.500,00",
		"08/03/24 TRANSFERENCIARECIBIDA CVU PEREZ JUAN 5.000,00 22.500,00",
		"11/03/24 IMP DEB/CRED LEY 25413 -45,00 22.455,00",
		"SALDO FINAL 22.455,00",
	}, "\n")

	res := mustParse(t, NewBBVA(Config{}), text)

	stmt := res.Statement
	assert.Equal(t, statement.BankBBVA, stmt.Bank)
	require.NotNil(t, stmt.PeriodStart)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *stmt.PeriodStart)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), *stmt.PeriodEnd)

	require.Len(t, stmt.Accounts, 1)
	acc := stmt.Accounts[0]
	assert.Equal(t, "201-334455/6", acc.AccountNumber)
	assert.Equal(t, "CUENTA CORRIENTE EN PESOS", acc.Label)
	require.NotNil(t, acc.OpeningBalance)
	amountEqual(t, "20000", *acc.OpeningBalance)
	require.NotNil(t, acc.ClosingBalance)
	amountEqual(t, "22455", *acc.ClosingBalance)

	require.Len(t, acc.Transactions, 3)

	visa := acc.Transactions[0]
	assert.Equal(t, "PAGO TARJETA VISA CUOTA 03", visa.Description, "fused words split in sequence")
	amountEqual(t, "-2500", visa.Amount)
	assert.Equal(t, statement.TypeDebit, visa.Type)

	transf := acc.Transactions[1]
	assert.Equal(t, "TRANSFERENCIA RECIBIDA CVU PEREZ JUAN", transf.Description)
	amountEqual(t, "5000", transf.Amount)
	assert.Equal(t, statement.TypeCredit, transf.Type)

	imp := acc.Transactions[2]
	assert.Equal(t, "IMPUESTO DEBITOS CREDITOS LEY 25413", imp.Description)
	amountEqual(t, "-45", imp.Amount)
	amountEqual(t, "22455", imp.Balance)
}

func TestBBVAMultiLineDescriptions(t *testing.T) {
	text := strings.Join([]string{
		"CUENTA CORRIENTE EN PESOS NRO. 201-334455/6",
		"SALDO ANTERIOR 20.000,00",
		"05/03/24 DEBITOAUTOMATICO",
		"EDESUR NIS 404040",
		"1.000,00 19.000,00",
		"SALDO FINAL 19.000,00",
	}, "\n")

	res := mustParse(t, NewBBVA(Config{}), text)

	require.Len(t, res.Statement.Accounts, 1)
	require.Len(t, res.Statement.Accounts[0].Transactions, 1)
	tx := res.Statement.Accounts[0].Transactions[0]

	assert.Equal(t, "DEBITO AUTOMATICO EDESUR NIS 404040", tx.Description)
	assert.Equal(t, "DEBITOAUTOMATICO EDESUR NIS 404040", tx.OriginalDescription)
	assert.Equal(t, statement.TypeDebit, tx.Type, "the DEBITO keyword flips the unsigned amount")
	amountEqual(t, "-1000", tx.Amount)
	amountEqual(t, "19000", tx.Balance)
}
