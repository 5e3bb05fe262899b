package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// supervielleParser reads Banco Supervielle statements. Each account is a
// single "CUENTA CORRIENTE Nº ..." or "CAJA DE AHORRO Nº ..." line carrying
// the number; the movements table follows a "MOVIMIENTOS" header and ends
// at "SALDO TOTAL". Page headers repeat between pages and are filtered.
type supervielleParser struct {
	eng engine
}

// NewSupervielle creates the Banco Supervielle statement parser.
func NewSupervielle(cfg Config) Parser {
	return &supervielleParser{eng: newEngine(statement.BankSupervielle, supervielleSpec, cfg)}
}

func (p *supervielleParser) Bank() statement.Bank { return statement.BankSupervielle }

func (p *supervielleParser) Parse(ctx context.Context, text string, progress Progress) (*ParseResult, error) {
	return p.eng.run(ctx, text, progress)
}

var (
	superviellePeriodPattern  = regexp.MustCompile(`(?i)PER[IÍ]ODO\s*:?\s*(?:DEL\s+)?(\d{2}/\d{2}/(?:\d{4}|\d{2}))\s+(?:AL|HASTA)\s+(\d{2}/\d{2}/(?:\d{4}|\d{2}))`)
	supervielleAccountPattern = regexp.MustCompile(`(?i)(CUENTA\s+CORRIENTE|CAJA\s+DE\s+AHORRO)(\s+EN\s+(?:PESOS|D[OÓ]LARES|U\$S))?\s+N[º°O]?\.?\s*(\d[\d\-/.]*\d)`)
)

var supervielleCanonical = []replacement{
	{regexp.MustCompile(`\bTRANSF\.?\s*INMEDIATA\b`), "TRANSFERENCIA INMEDIATA"},
	{regexp.MustCompile(`\bPAGO\s+DEB\.?\s*AUTOM?\.?\s*`), "PAGO DEBITO AUTOMATICO "},
	{regexp.MustCompile(`\bCOM\.?\s*MANTENIM(?:IENTO)?\.?\b`), "COMISION MANTENIMIENTO"},
	{regexp.MustCompile(`\bIMP\.\s*`), "IMPUESTO "},
	{regexp.MustCompile(`\bPERC\.\s*`), "PERCEPCION "},
	{regexp.MustCompile(`\bRET\.\s*`), "RETENCION "},
}

func supervielleSpec() bankSpec {
	return bankSpec{
		period: superviellePeriodPattern,
		accountStart: func(m *matcher, line string) (accountInfo, MatchOutcome) {
			groups, outcome := m.find(supervielleAccountPattern, line)
			if outcome != MatchHit {
				return accountInfo{}, outcome
			}
			currency := money.ARS
			if lineContains(groups[2], "DOLARES", "DÓLARES", "U$S") {
				currency = money.USD
			}
			return accountInfo{
				number:   groups[3],
				label:    strings.TrimSpace(strings.Join(strings.Fields(groups[1]), " ")),
				currency: currency,
			}, MatchHit
		},
		opening: func(line string) bool {
			return lineContains(line, "SALDO INICIAL")
		},
		closing: func(line string) bool {
			return lineContains(line, "SALDO TOTAL")
		},
		movements: func(line string) bool {
			return lineContains(line, "MOVIMIENTOS")
		},
		noise: func(line string) bool {
			if lineContains(line, "FECHA CONCEPTO", "FECHA COMPROBANTE") {
				return true
			}
			return lineContains(line, "BANCO SUPERVIELLE", "HOJA N", "CUIT", "CONTINUA EN PAGINA")
		},
		canonical: supervielleCanonical,
	}
}
