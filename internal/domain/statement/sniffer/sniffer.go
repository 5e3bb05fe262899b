// Package sniffer identifies which supported bank issued a statement by
// scoring its text against per-bank marker vocabularies. It lets callers
// omit the explicit bank key when the document is unambiguous.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
)

// signature is one bank's marker vocabulary. Strong markers are phrases
// effectively unique to the issuer (its printed name, singular section
// titles); weak markers are balance and table phrases that overlap across
// layouts and mostly break ties.
type signature struct {
	bank   statement.Bank
	strong []string
	weak   []string
}

const (
	strongWeight = 5
	weakWeight   = 1
)

var signatures = []signature{
	{
		bank:   statement.BankGalicia,
		strong: []string{"BANCO GALICIA", "BANCO DE GALICIA", "SALDOS Y MOVIMIENTOS"},
		weak: []string{
			"SALDO DEL PERIODO ANTERIOR", "SALDO DEL PERÍODO ANTERIOR",
			"SALDO PERIODO ACTUAL", "SALDO PERÍODO ACTUAL",
			"NUMERO DE CUENTA", "NÚMERO DE CUENTA",
		},
	},
	{
		bank:   statement.BankSupervielle,
		strong: []string{"BANCO SUPERVIELLE", "SUPERVIELLE"},
		weak:   []string{"SALDO INICIAL", "SALDO TOTAL", "MOVIMIENTOS"},
	},
	{
		bank:   statement.BankSantander,
		strong: []string{"BANCO SANTANDER", "SANTANDER RIO", "CUENTA UNICA", "CUENTA ÚNICA"},
		weak:   []string{"SALDO AL INICIO", "SALDO AL CIERRE", "DETALLE DE MOVIMIENTOS"},
	},
	{
		bank:   statement.BankBBVA,
		strong: []string{"BBVA", "BANCO FRANCES", "BANCO FRANCÉS"},
		weak:   []string{"SALDO ANTERIOR", "SALDO FINAL", "TRANSPORTE"},
	},
}

// Detection is the outcome of sniffing one document.
type Detection struct {
	// Bank is the best-scoring issuer.
	Bank statement.Bank
	// Confidence is the winner's share of all scored marker weight (0-1),
	// damped when even the winner matched nothing beyond weak markers.
	Confidence float64
	// Fingerprint hashes the set of matched marker phrases; documents with
	// the same layout produce the same fingerprint.
	Fingerprint string
	// Scores holds the per-bank totals behind the decision.
	Scores map[statement.Bank]int
}

// ErrNoSignal means the text matched no marker of any supported bank.
var ErrNoSignal = errors.New("no bank markers recognized")

// DetectBank scores the document against every signature and returns the
// winner. A tie keeps the earlier signature; callers that need certainty
// should gate on Confidence rather than trust a narrow win.
func DetectBank(text string) (*Detection, error) {
	upper := strings.ToUpper(text)

	scores := make(map[statement.Bank]int, len(signatures))
	var matched []string
	total := 0
	var best statement.Bank
	bestScore := 0

	for _, sig := range signatures {
		score := 0
		for _, phrase := range sig.strong {
			if strings.Contains(upper, phrase) {
				score += strongWeight
				matched = append(matched, phrase)
			}
		}
		for _, phrase := range sig.weak {
			if strings.Contains(upper, phrase) {
				score += weakWeight
				matched = append(matched, phrase)
			}
		}
		scores[sig.bank] = score
		total += score
		if score > bestScore {
			bestScore = score
			best = sig.bank
		}
	}

	if bestScore == 0 {
		return nil, ErrNoSignal
	}

	share := float64(bestScore) / float64(total)
	strength := float64(bestScore) / float64(strongWeight)
	if strength > 1 {
		strength = 1
	}

	return &Detection{
		Bank:        best,
		Confidence:  share * strength,
		Fingerprint: fingerprint(matched),
		Scores:      scores,
	}, nil
}

// fingerprint hashes the sorted matched phrases so equal marker sets hash
// equally regardless of document order.
func fingerprint(matched []string) string {
	sort.Strings(matched)
	sum := sha256.Sum256([]byte(strings.Join(matched, "|")))
	return hex.EncodeToString(sum[:])
}
