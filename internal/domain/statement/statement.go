// Package statement defines the ledger model reconstructed from bank
// statement PDFs: banks, accounts, movements and their running balances.
package statement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bank identifies a supported statement issuer.
type Bank string

const (
	BankGalicia     Bank = "galicia"
	BankSupervielle Bank = "supervielle"
	BankSantander   Bank = "santander"
	BankBBVA        Bank = "bbva"
)

// ParseBank maps a case-insensitive bank name to a known Bank.
// The second return is false for banks this module does not handle.
func ParseBank(name string) (Bank, bool) {
	switch Bank(strings.ToLower(strings.TrimSpace(name))) {
	case BankGalicia:
		return BankGalicia, true
	case BankSupervielle:
		return BankSupervielle, true
	case BankSantander:
		return BankSantander, true
	case BankBBVA:
		return BankBBVA, true
	}
	return "", false
}

// TransactionType marks the direction of a movement.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Transaction is a single statement movement. Amount is signed (debits
// negative), Balance is the running balance printed on the same row.
type Transaction struct {
	Date                time.Time        `json:"date"`
	Description         string           `json:"description"`
	OriginalDescription string           `json:"originalDescription,omitempty"`
	Amount              decimal.Decimal  `json:"amount"`
	Type                TransactionType  `json:"type"`
	Balance             decimal.Decimal  `json:"balance"`
	IsSuspicious        bool             `json:"isSuspicious,omitempty"`
	SuggestedAmount     *decimal.Decimal `json:"suggestedAmount,omitempty"`
	Category            *string          `json:"category,omitempty"`
	Subcategory         *string          `json:"subcategory,omitempty"`
	CategorySource      *string          `json:"categorySource,omitempty"`
	CategoryRuleID      *uuid.UUID       `json:"categoryRuleId,omitempty"`
}

// AccountStatement groups the movements of one account within a statement.
// The balances are nil when the statement never prints the matching line.
type AccountStatement struct {
	AccountNumber  string           `json:"accountNumber"`
	Label          string           `json:"label,omitempty"`
	Currency       string           `json:"currency"`
	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closingBalance,omitempty"`
	Transactions   []Transaction    `json:"transactions"`
}

// BankStatement is the full reconstructed ledger for one statement document.
type BankStatement struct {
	Bank        Bank               `json:"bank"`
	PeriodStart *time.Time         `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time         `json:"periodEnd,omitempty"`
	Accounts    []AccountStatement `json:"accounts"`
}

// TransactionCount returns the number of movements across all accounts.
func (b *BankStatement) TransactionCount() int {
	if b == nil {
		return 0
	}
	total := 0
	for i := range b.Accounts {
		total += len(b.Accounts[i].Transactions)
	}
	return total
}

// SuspiciousCount returns the number of movements flagged during reconciliation.
func (b *BankStatement) SuspiciousCount() int {
	if b == nil {
		return 0
	}
	total := 0
	for i := range b.Accounts {
		for j := range b.Accounts[i].Transactions {
			if b.Accounts[i].Transactions[j].IsSuspicious {
				total++
			}
		}
	}
	return total
}

// NetChange returns the signed sum of all movements in the account.
func (a *AccountStatement) NetChange() decimal.Decimal {
	net := decimal.Zero
	for i := range a.Transactions {
		net = net.Add(a.Transactions[i].Amount)
	}
	return net
}

// TotalDebits returns the absolute sum of debit movements.
func (a *AccountStatement) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Transactions {
		if a.Transactions[i].Type == TypeDebit {
			total = total.Add(a.Transactions[i].Amount.Abs())
		}
	}
	return total
}

// TotalCredits returns the sum of credit movements.
func (a *AccountStatement) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Transactions {
		if a.Transactions[i].Type == TypeCredit {
			total = total.Add(a.Transactions[i].Amount)
		}
	}
	return total
}

// LastBalance returns the running balance after the final movement, or the
// opening balance when the account has none.
func (a *AccountStatement) LastBalance() decimal.Decimal {
	if len(a.Transactions) == 0 {
		if a.OpeningBalance != nil {
			return *a.OpeningBalance
		}
		return decimal.Zero
	}
	return a.Transactions[len(a.Transactions)-1].Balance
}
