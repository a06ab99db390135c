package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// Fingerprint identifies a transaction as logically the same record across
// re-imports. Summary text is deliberately excluded: PDF and OCR wording for
// the same transfer varies, while (date, time, amount, reference) does not.
type Fingerprint struct {
	Date   string
	Time   string
	Ref    string
	Amount decimal.Decimal
}

// NewFingerprint builds a fingerprint with date and time brought to
// canonical form first, so the same transaction hashes identically no matter
// which import path produced it.
func NewFingerprint(date, txTime, ref string, amount decimal.Decimal) Fingerprint {
	return Fingerprint{
		Date:   NormalizeDate(date),
		Time:   NormalizeTime(txTime),
		Ref:    ref,
		Amount: amount,
	}
}

// Hash returns the hex SHA-256 over the account-scoped fingerprint tuple.
// The stored column carries a unique index on this value, which is what
// enforces the one-fingerprint-per-account invariant.
func (f Fingerprint) Hash(accountID int64) string {
	raw := fmt.Sprintf("%d|%s|%s|%s|%s", accountID, f.Date, f.Time, f.Ref, f.Amount.String())
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether two fingerprints identify the same transaction.
// Amounts are compared by exact decimal equality, no tolerance.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Date == other.Date &&
		f.Time == other.Time &&
		f.Ref == other.Ref &&
		f.Amount.Equal(other.Amount)
}

// TransactionFingerprint derives the fingerprint of a stored transaction.
func TransactionFingerprint(t Transaction) Fingerprint {
	return NewFingerprint(t.Date, t.Time, t.Ref, t.Amount)
}

// CandidateFingerprint derives the fingerprint of a candidate row.
func CandidateFingerprint(c Candidate) Fingerprint {
	return NewFingerprint(c.Date, c.Time, c.Ref, c.Amount)
}

// MarkDuplicates returns a parallel bool slice, true where the candidate
// already exists among the given stored transactions. excludeID skips one
// stored transaction from comparison so that editing a transaction never
// flags it as a duplicate of itself; pass 0 to compare against everything.
// An empty store marks every candidate as new.
func MarkDuplicates(stored []Transaction, candidates []Candidate, excludeID int64) []bool {
	flags := make([]bool, len(candidates))
	if len(stored) == 0 {
		return flags
	}

	prints := make([]Fingerprint, 0, len(stored))
	for _, t := range stored {
		if excludeID != 0 && t.ID == excludeID {
			continue
		}
		prints = append(prints, TransactionFingerprint(t))
	}

	for i, c := range candidates {
		cf := CandidateFingerprint(c)
		for _, p := range prints {
			if cf.Matches(p) {
				flags[i] = true
				break
			}
		}
	}
	return flags
}
