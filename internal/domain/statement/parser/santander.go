package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// santanderParser reads Banco Santander statements. Peso accounts appear as
// "CUENTA ÚNICA Nº ...", dollar accounts as "CUENTA EN U$S Nº ...". The
// movements table sits between "DETALLE DE MOVIMIENTOS" and "SALDO AL
// CIERRE".
type santanderParser struct {
	eng engine
}

// NewSantander creates the Banco Santander statement parser.
func NewSantander(cfg Config) Parser {
	return &santanderParser{eng: newEngine(statement.BankSantander, santanderSpec, cfg)}
}

func (p *santanderParser) Bank() statement.Bank { return statement.BankSantander }

func (p *santanderParser) Parse(ctx context.Context, text string, progress Progress) (*ParseResult, error) {
	return p.eng.run(ctx, text, progress)
}

var (
	santanderPeriodPattern  = regexp.MustCompile(`(?i)(?:RESUMEN\s+)?(?:DESDE|PER[IÍ]ODO)\s*:?\s*(?:EL\s+)?(\d{2}/\d{2}/(?:\d{4}|\d{2}))\s+(?:HASTA|AL)\s+(?:EL\s+)?(\d{2}/\d{2}/(?:\d{4}|\d{2}))`)
	santanderAccountPattern = regexp.MustCompile(`(?i)CUENTA\s+(?:[UÚ]NICA|EN\s+(U\$S|D[OÓ]LARES)|CORRIENTE|DE\s+AHORRO)\s+N[º°O]?\.?\s*(\d[\d\-/.]*\d)`)
)

var santanderCanonical = []replacement{
	{regexp.MustCompile(`\bCOMPRA\s+TARJ\.?\s*`), "COMPRA TARJETA "},
	{regexp.MustCompile(`\bTRANSF\.?\s+`), "TRANSFERENCIA "},
	{regexp.MustCompile(`\bIMPTO\.?\s*`), "IMPUESTO "},
	{regexp.MustCompile(`\bCOMIS\.?\s+`), "COMISION "},
	{regexp.MustCompile(`\bACREDITAM\.?\s*`), "ACREDITAMIENTO "},
	{regexp.MustCompile(`TARJETAVISA`), "TARJETA VISA"},
}

func santanderSpec() bankSpec {
	return bankSpec{
		period: santanderPeriodPattern,
		accountStart: func(m *matcher, line string) (accountInfo, MatchOutcome) {
			groups, outcome := m.find(santanderAccountPattern, line)
			if outcome != MatchHit {
				return accountInfo{}, outcome
			}
			currency := money.ARS
			if groups[1] != "" {
				currency = money.USD
			}
			label := strings.TrimSpace(line)
			if idx := strings.Index(strings.ToUpper(label), " N"); idx > 0 {
				label = strings.TrimSpace(label[:idx])
			}
			return accountInfo{number: groups[2], label: label, currency: currency}, MatchHit
		},
		opening: func(line string) bool {
			return lineContains(line, "SALDO AL INICIO")
		},
		closing: func(line string) bool {
			return lineContains(line, "SALDO AL CIERRE")
		},
		movements: func(line string) bool {
			return lineContains(line, "DETALLE DE MOVIMIENTOS")
		},
		noise: func(line string) bool {
			if lineContains(line, "FECHA COMPROBANTE", "FECHA MOVIMIENTO", "FECHA CONCEPTO") {
				return true
			}
			return lineContains(line, "BANCO SANTANDER", "SUPERVISION ENTIDADES", "CUIT")
		},
		canonical: santanderCanonical,
	}
}
