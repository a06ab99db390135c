package core

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// Account is a bank account transactions are reconciled into.
	Account struct {
		ID             int64           `json:"account_id"`
		Name           string          `json:"account_name"`
		Number         string          `json:"account_number"`
		BankCode       string          `json:"bank_code"`
		InitialBalance decimal.Decimal `json:"initial_balance"`
		// Balance is computed: initial balance + sum of transaction amounts.
		Balance decimal.Decimal `json:"balance"`
	}

	// Transaction is a committed ledger entry. Date is canonical YYYY/MM/DD,
	// Time is HH:MM:SS. Positive amounts are income, negative are expenses.
	Transaction struct {
		ID          int64           `json:"transaction_id"`
		AccountID   int64           `json:"account_id"`
		Date        string          `json:"trans_date"`
		Time        string          `json:"trans_time"`
		Summary     string          `json:"summary"`
		Ref         string          `json:"ref_no"`
		Amount      decimal.Decimal `json:"amount"`
		AccountName string          `json:"account_name,omitempty"`
	}

	// Candidate is an unconfirmed transaction extracted from a PDF statement
	// or an OCR screenshot, pending user review. It has no identity and no
	// account binding until committed.
	Candidate struct {
		Date    string          `json:"date"`
		Time    string          `json:"time"`
		Summary string          `json:"summary"`
		Ref     string          `json:"ref_no"`
		Amount  decimal.Decimal `json:"amount"`
	}
)

func init() {
	// Amounts go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrEmptyName              = errors.New("account name is required")
	ErrEmptyBankCode          = errors.New("bank code is required")
	ErrInvalidDate            = errors.New("date is not in YYYY/MM/DD form")
	ErrInvalidTime            = errors.New("time is not in HH:MM:SS form")
	ErrAccountNameTaken       = errors.New("account name already exists")
	ErrDuplicateTransaction   = errors.New("transaction already exists")
	ErrAccountHasTransactions = errors.New("account still has transactions")
	ErrNotFound               = errors.New("not found")
)

var (
	canonicalDateRe = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)
	canonicalTimeRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// IsCanonicalDate reports whether s is a canonical YYYY/MM/DD date string.
func IsCanonicalDate(s string) bool {
	return canonicalDateRe.MatchString(s)
}

// ShortNumber returns the last five digits of an account number; shorter
// numbers pass through unchanged.
func ShortNumber(number string) string {
	if len(number) >= 5 {
		return number[len(number)-5:]
	}
	return number
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(a.BankCode) == "" {
		return ErrEmptyBankCode
	}
	return nil
}

func (t Transaction) Validate() error {
	if !IsCanonicalDate(t.Date) {
		return ErrInvalidDate
	}
	if t.Time != "" && !canonicalTimeRe.MatchString(t.Time) {
		return ErrInvalidTime
	}
	return nil
}

// Valid reports whether a candidate row is committable: a date the
// normalizer can bring to canonical form. Rows failing this are left out of
// batch commits rather than rejected as errors.
func (c Candidate) Valid() bool {
	return IsCanonicalDate(NormalizeDate(c.Date))
}
