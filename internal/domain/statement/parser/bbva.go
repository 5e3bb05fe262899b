package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// bbvaParser reads BBVA statements, the noisiest of the supported layouts:
// glyph extraction routinely fuses words, so its canonicalization table is
// the largest. Account sections open with "CUENTA CORRIENTE EN PESOS NRO."
// style lines; the table runs from "SALDO ANTERIOR" to "SALDO FINAL".
type bbvaParser struct {
	eng engine
}

// NewBBVA creates the BBVA statement parser.
func NewBBVA(cfg Config) Parser {
	return &bbvaParser{eng: newEngine(statement.BankBBVA, bbvaSpec, cfg)}
}

func (p *bbvaParser) Bank() statement.Bank { return statement.BankBBVA }

func (p *bbvaParser) Parse(ctx context.Context, text string, progress Progress) (*ParseResult, error) {
	return p.eng.run(ctx, text, progress)
}

var (
	bbvaPeriodPattern  = regexp.MustCompile(`(?i)PER[IÍ]ODO\s*:?\s*(\d{2}/\d{2}/(?:\d{4}|\d{2}))\s*(?:AL|-|HASTA)\s*(\d{2}/\d{2}/(?:\d{4}|\d{2}))`)
	bbvaAccountPattern = regexp.MustCompile(`(?i)(CUENTA\s+CORRIENTE|CAJA\s+DE\s+AHORRO)\s+EN\s+(PESOS|D[OÓ]LARES)\s+NRO\.?\s*(\d[\d\-/.]*\d)`)
)

var bbvaCanonical = []replacement{
	{regexp.MustCompile(`PAGOTARJETA`), "PAGO TARJETA"},
	{regexp.MustCompile(`TARJETAVISA`), "TARJETA VISA"},
	{regexp.MustCompile(`TARJETAMASTER`), "TARJETA MASTER"},
	{regexp.MustCompile(`DEBITOAUTOMATICO`), "DEBITO AUTOMATICO"},
	{regexp.MustCompile(`TRANSFERENCIARECIBIDA`), "TRANSFERENCIA RECIBIDA"},
	{regexp.MustCompile(`TRANSFERENCIAEMITIDA`), "TRANSFERENCIA EMITIDA"},
	{regexp.MustCompile(`PAGODESERVICIOS?`), "PAGO DE SERVICIOS"},
	{regexp.MustCompile(`\bIMP\.?\s*DEB\.?\s*/?\s*CRED\.?\s*`), "IMPUESTO DEBITOS CREDITOS "},
	{regexp.MustCompile(`\bLEY\s*25\.?413\b`), "LEY 25413"},
	{regexp.MustCompile(`\bPERCEP\.?\s*IIBB\b`), "PERCEPCION IIBB"},
	{regexp.MustCompile(`\bRETENC\.?\s+`), "RETENCION "},
	{regexp.MustCompile(`\bMANTENIM\.?\s*`), "MANTENIMIENTO "},
}

func bbvaSpec() bankSpec {
	return bankSpec{
		period: bbvaPeriodPattern,
		accountStart: func(m *matcher, line string) (accountInfo, MatchOutcome) {
			groups, outcome := m.find(bbvaAccountPattern, line)
			if outcome != MatchHit {
				return accountInfo{}, outcome
			}
			currency := money.ARS
			if strings.HasPrefix(strings.ToUpper(groups[2]), "D") {
				currency = money.USD
			}
			label := strings.Join(strings.Fields(groups[1]), " ") + " EN " + strings.ToUpper(groups[2])
			return accountInfo{number: groups[3], label: label, currency: currency}, MatchHit
		},
		opening: func(line string) bool {
			return lineContains(line, "SALDO ANTERIOR")
		},
		closing: func(line string) bool {
			return lineContains(line, "SALDO FINAL", "SALDO AL DIA")
		},
		movements: func(line string) bool {
			return lineContains(line, "DETALLE DE MOVIMIENTOS")
		},
		noise: func(line string) bool {
			if lineContains(line, "FECHA CONCEPTO", "FECHA ORIGEN") {
				return true
			}
			return lineContains(line, "BBVA", "BANCO FRANCES", "HOJA N", "CUIT", "TRANSPORTE")
		},
		canonical: bbvaCanonical,
	}
}
