// Package export writes reconstructed ledgers to interchange formats:
// flat CSV (one row per movement with its account context), XLSX with one
// sheet per account, and the JSON wire shape of the statement model.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat maps a case-insensitive format name to a known Format.
func ParseFormat(name string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatCSV:
		return FormatCSV, true
	case FormatXLSX:
		return FormatXLSX, true
	case FormatJSON:
		return FormatJSON, true
	}
	return "", false
}

var errNoStatement = errors.New("no statement to export")

// ContentType returns the MIME type matching a format, for storage layers
// that record one.
func ContentType(format Format) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// Write encodes the ledger in the requested format.
func Write(w io.Writer, format Format, st *statement.BankStatement) error {
	switch format {
	case FormatCSV:
		return CSV(w, st)
	case FormatXLSX:
		return XLSX(w, st)
	case FormatJSON:
		return JSON(w, st)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// csvRow is the flat CSV shape. The tags name the output columns
// (gocsv writes headers from them).
type csvRow struct {
	Bank            string `csv:"bank"`
	AccountNumber   string `csv:"account_number"`
	Currency        string `csv:"currency"`
	Date            string `csv:"date"`
	Description     string `csv:"description"`
	Amount          string `csv:"amount"`
	Type            string `csv:"type"`
	Balance         string `csv:"balance"`
	Suspicious      bool   `csv:"suspicious"`
	SuggestedAmount string `csv:"suggested_amount"`
	Category        string `csv:"category"`
	Subcategory     string `csv:"subcategory"`
}

// CSV writes one row per movement. Amounts are fixed two-decimal strings,
// dates dd/mm/yyyy.
func CSV(w io.Writer, st *statement.BankStatement) error {
	if st == nil {
		return errNoStatement
	}

	rows := make([]csvRow, 0, st.TransactionCount())
	for ai := range st.Accounts {
		acct := &st.Accounts[ai]
		for ti := range acct.Transactions {
			tx := &acct.Transactions[ti]

			row := csvRow{
				Bank:          string(st.Bank),
				AccountNumber: acct.AccountNumber,
				Currency:      acct.Currency,
				Date:          tx.Date.Format("02/01/2006"),
				Description:   tx.Description,
				Amount:        tx.Amount.StringFixed(2),
				Type:          string(tx.Type),
				Balance:       tx.Balance.StringFixed(2),
				Suspicious:    tx.IsSuspicious,
			}
			if tx.SuggestedAmount != nil {
				row.SuggestedAmount = tx.SuggestedAmount.StringFixed(2)
			}
			if tx.Category != nil {
				row.Category = *tx.Category
			}
			if tx.Subcategory != nil {
				row.Subcategory = *tx.Subcategory
			}
			rows = append(rows, row)
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// JSON writes the indented statement model.
func JSON(w io.Writer, st *statement.BankStatement) error {
	if st == nil {
		return errNoStatement
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

var xlsxHeader = []string{
	"Date", "Description", "Amount", "Type", "Balance",
	"Suspicious", "Suggested Amount", "Category", "Subcategory",
}

// XLSX writes a workbook with one sheet per account. Amount and balance
// cells are numeric so spreadsheet formulas work on them directly.
func XLSX(w io.Writer, st *statement.BankStatement) error {
	if st == nil {
		return errNoStatement
	}

	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"

	seen := make(map[string]int)
	for ai := range st.Accounts {
		acct := &st.Accounts[ai]
		name := sheetName(acct, seen)

		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeAccountSheet(f, name, acct); err != nil {
			return err
		}
	}

	if len(st.Accounts) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	} else {
		// Keep the workbook valid: a single header-only sheet.
		if err := f.SetSheetName(defaultSheet, "Ledger"); err != nil {
			return fmt.Errorf("rename default sheet: %w", err)
		}
		if err := writeHeaderRow(f, "Ledger"); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Excel forbids []:*?/\ in sheet names and caps them at 31 characters.
var sheetNameSanitizer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "[", "(", "]", ")", "*", "", "?", "",
)

func sheetName(acct *statement.AccountStatement, seen map[string]int) string {
	base := strings.TrimSpace(fmt.Sprintf("%s %s", acct.Currency, acct.AccountNumber))
	if base == "" {
		base = "Account"
	}
	base = sheetNameSanitizer.Replace(base)
	if len(base) > 28 {
		base = strings.TrimSpace(base[:28])
	}

	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s %d", base, n)
	}
	return base
}

func writeHeaderRow(f *excelize.File, sheet string) error {
	for col, title := range xlsxHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("write header %q: %w", title, err)
		}
	}
	return nil
}

func writeAccountSheet(f *excelize.File, sheet string, acct *statement.AccountStatement) error {
	if err := writeHeaderRow(f, sheet); err != nil {
		return err
	}

	for ti := range acct.Transactions {
		tx := &acct.Transactions[ti]

		var suggested any
		if tx.SuggestedAmount != nil {
			suggested = tx.SuggestedAmount.InexactFloat64()
		} else {
			suggested = ""
		}
		category := ""
		if tx.Category != nil {
			category = *tx.Category
		}
		subcategory := ""
		if tx.Subcategory != nil {
			subcategory = *tx.Subcategory
		}

		values := []any{
			tx.Date.Format("02/01/2006"),
			tx.Description,
			tx.Amount.InexactFloat64(),
			string(tx.Type),
			tx.Balance.InexactFloat64(),
			tx.IsSuspicious,
			suggested,
			category,
			subcategory,
		}

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, ti+2)
			if err != nil {
				return fmt.Errorf("cell for row %d: %w", ti+2, err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	// Description and amount columns carry the bulk of the content.
	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 44); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "C", "E", 14); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}
