package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// galiciaParser reads Banco Galicia statements. Galicia prints the account
// number once on the cover and then one section per currency ("EN PESOS",
// "EN DOLARES"), each with its own opening and closing balance lines.
type galiciaParser struct {
	eng engine
}

// NewGalicia creates the Banco Galicia statement parser.
func NewGalicia(cfg Config) Parser {
	return &galiciaParser{eng: newEngine(statement.BankGalicia, galiciaSpec, cfg)}
}

func (p *galiciaParser) Bank() statement.Bank { return statement.BankGalicia }

func (p *galiciaParser) Parse(ctx context.Context, text string, progress Progress) (*ParseResult, error) {
	return p.eng.run(ctx, text, progress)
}

var (
	galiciaPeriodPattern  = regexp.MustCompile(`(?i)PER[IÍ]ODO\s*:?\s*(\d{2}/\d{2}/(?:\d{4}|\d{2}))\s+AL\s+(\d{2}/\d{2}/(?:\d{4}|\d{2}))`)
	galiciaAccountPattern = regexp.MustCompile(`(?i)N[UÚ]MERO\s+DE\s+CUENTA\s*:?\s*(\d[\d\-/. ]*\d)`)
	galiciaSectionPattern = regexp.MustCompile(`(?i)^(?:CUENTA\s+CORRIENTE|CAJA\s+DE\s+AHORRO|SALDOS\s+Y\s+MOVIMIENTOS)?\s*EN\s+(PESOS|D[OÓ]LARES)\b`)
)

var galiciaCanonical = []replacement{
	{regexp.MustCompile(`TARJETAVISA`), "TARJETA VISA"},
	{regexp.MustCompile(`\bIMP\.?\s*LEY\s*25\.?413\b`), "IMPUESTO LEY 25413"},
	{regexp.MustCompile(`\bDEB\.?\s*AUT(?:OM)?\.?\s*`), "DEBITO AUTOMATICO "},
	{regexp.MustCompile(`\bTRANSF\.?\s+`), "TRANSFERENCIA "},
	{regexp.MustCompile(`\bACRED\.?\s+`), "ACREDITACION "},
	{regexp.MustCompile(`\bCOM\.\s*`), "COMISION "},
	{regexp.MustCompile(`\bMANT\.?\s*CTA\.?\b`), "MANTENIMIENTO CUENTA"},
}

func galiciaSpec() bankSpec {
	// The cover's account number line precedes the currency sections, so it
	// is remembered here and attached to every section that follows.
	var accountNumber string

	return bankSpec{
		period: galiciaPeriodPattern,
		accountStart: func(m *matcher, line string) (accountInfo, MatchOutcome) {
			groups, outcome := m.find(galiciaAccountPattern, line)
			switch outcome {
			case MatchHit:
				accountNumber = strings.TrimSpace(groups[1])
				return accountInfo{}, MatchMiss
			case MatchTimeout:
				return accountInfo{}, MatchTimeout
			}

			groups, outcome = m.find(galiciaSectionPattern, line)
			if outcome != MatchHit {
				return accountInfo{}, outcome
			}
			currency := money.ARS
			if strings.HasPrefix(strings.ToUpper(groups[1]), "D") {
				currency = money.USD
			}
			return accountInfo{
				number:   accountNumber,
				label:    strings.TrimSpace(line),
				currency: currency,
			}, MatchHit
		},
		opening: func(line string) bool {
			return lineContains(line, "SALDO DEL PERIODO ANTERIOR", "SALDO DEL PERÍODO ANTERIOR", "SALDO ANTERIOR")
		},
		closing: func(line string) bool {
			return lineContains(line, "SALDO PERIODO ACTUAL", "SALDO PERÍODO ACTUAL")
		},
		noise: func(line string) bool {
			if lineContains(line, "FECHA DESCRIPCION", "FECHA DESCRIPCIÓN") {
				return true
			}
			return lineContains(line, "RESUMEN DE CUENTA", "HOJA NRO", "CUIT")
		},
		canonical: galiciaCanonical,
	}
}
