package money

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic statement test data using gofakeit:
// movement chains with consistent running balances, Argentine movement
// wordings and bank-looking account identifiers.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// TestMovement is one generated statement row: a dated movement with its
// running balance, the way Argentine statements print them.
type TestMovement struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Balance     decimal.Decimal
}

var debitDescriptions = []string{
	"PAGO TARJETA VISA",
	"PAGO TARJETA MASTERCARD",
	"DEBITO AUTOMATICO EDESUR",
	"DEBITO AUTOMATICO METROGAS",
	"COMPRA CON TARJETA DE DEBITO",
	"TRANSFERENCIA REALIZADA",
	"EXTRACCION CAJERO AUTOMATICO",
	"IMPUESTO LEY 25413 DEBITO",
	"COMISION MANTENIMIENTO CUENTA",
	"PAGO DE SERVICIOS PAGOMISCUENTAS",
	"IVA TASA GENERAL",
	"PERCEPCION IIBB",
}

var creditDescriptions = []string{
	"TRANSFERENCIA RECIBIDA",
	"ACREDITACION DE HABERES",
	"DEPOSITO EN EFECTIVO",
	"ACREDITACION PLAZO FIJO",
	"REINTEGRO PROMOCION",
	"COBRO DE CHEQUE",
	"CREDITO POR VENTA COMERCIO",
}

// DebitDescription returns a random debit movement description.
func (g *TestDataGenerator) DebitDescription() string {
	return debitDescriptions[g.faker.Number(0, len(debitDescriptions)-1)]
}

// CreditDescription returns a random credit movement description.
func (g *TestDataGenerator) CreditDescription() string {
	return creditDescriptions[g.faker.Number(0, len(creditDescriptions)-1)]
}

// Counterparty returns a company-like counterparty string for descriptions.
func (g *TestDataGenerator) Counterparty() string {
	return g.faker.Company()
}

// RandomAmount generates a random positive decimal amount with two decimals
// within [min, max].
func (g *TestDataGenerator) RandomAmount(min, max float64) decimal.Decimal {
	v := g.faker.Float64Range(min, max)
	return decimal.NewFromFloat(v).Round(2)
}

// MovementChain generates count movements whose running balances chain from
// the opening balance. Roughly two thirds are debits, matching real retail
// statements. Dates advance zero to two days per movement starting at start.
func (g *TestDataGenerator) MovementChain(opening decimal.Decimal, start time.Time, count int) []TestMovement {
	movements := make([]TestMovement, 0, count)
	balance := opening
	date := start

	for i := 0; i < count; i++ {
		amount := g.RandomAmount(100, 250000)
		description := g.CreditDescription()
		if g.faker.Number(0, 2) < 2 {
			amount = amount.Neg()
			description = g.DebitDescription()
		}

		balance = balance.Add(amount)
		movements = append(movements, TestMovement{
			Date:        date,
			Description: description,
			Amount:      amount,
			Balance:     balance,
		})

		date = date.AddDate(0, 0, g.faker.Number(0, 2))
	}

	return movements
}

// AccountNumber generates a bank-looking account identifier like "4021544-6 085-9".
func (g *TestDataGenerator) AccountNumber() string {
	return g.faker.DigitN(7) + "-" + g.faker.DigitN(1) + " " + g.faker.DigitN(3) + "-" + g.faker.DigitN(1)
}
