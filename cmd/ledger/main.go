// ledger is the statement pipeline CLI: it parses the text layer of
// Argentine bank statement PDFs into reconciled, categorized ledgers,
// exports them as CSV, XLSX or JSON, and can watch a drop folder.
package main

func main() {
	Execute()
}
