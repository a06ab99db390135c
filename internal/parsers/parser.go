// Package parsers turns extracted statement text into candidate transaction
// rows. Each bank has its own text layout; parsers are selected by bank code
// through the registry.
package parsers

import (
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Statement is the outcome of parsing one PDF statement: the account number
// found in the document (short form, last five digits) and the candidate
// rows, in document order.
type Statement struct {
	AccountNumber string
	Rows          []core.Candidate
}

// Screenshot is the outcome of interpreting one OCR'd transfer screenshot:
// a single candidate row plus the account number when the screenshot shows
// one.
type Screenshot struct {
	AccountNumber string
	Row           core.Candidate
}

// StatementParser interprets the text of one bank's statements and
// screenshots. Implementations receive already-extracted text; PDF
// decryption and OCR happen upstream.
type StatementParser interface {
	// ParseStatement scans full statement text for transaction rows.
	ParseStatement(text string) (Statement, error)
	// ParseScreenshot interprets the OCR text of a single transfer
	// confirmation screen.
	ParseScreenshot(text string) (Screenshot, error)
}

// parseAmount reads a statement amount with optional thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// signByKeywords applies the bank's income keyword convention: anything not
// matching an income keyword is an expense and gets a negative sign.
func signByKeywords(amount decimal.Decimal, summary string, incomeKeywords []string) decimal.Decimal {
	for _, kw := range incomeKeywords {
		if strings.Contains(summary, kw) {
			return amount.Abs()
		}
	}
	return amount.Abs().Neg()
}
