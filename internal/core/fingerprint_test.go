package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFingerprintIgnoresSummary(t *testing.T) {
	stored := []Transaction{
		{ID: 1, AccountID: 7, Date: "2024/03/01", Time: "10:00:00", Summary: "ATM withdrawal", Ref: "A1", Amount: dec("-500")},
	}
	candidates := []Candidate{
		{Date: "2024/03/01", Time: "10:00:00", Summary: "completely different wording", Ref: "A1", Amount: dec("-500")},
	}

	flags := MarkDuplicates(stored, candidates, 0)
	if !flags[0] {
		t.Error("candidate with same (date, time, amount, ref) but different summary should be flagged")
	}
}

func TestFingerprintNormalizesBeforeMatching(t *testing.T) {
	stored := []Transaction{
		{ID: 1, Date: "2023/01/05", Time: "08:30:00", Ref: "X", Amount: dec("100")},
	}
	// ROC date and short time as they come off a screenshot.
	candidates := []Candidate{
		{Date: "112-1-5", Time: "08:30", Ref: "X", Amount: dec("100")},
	}

	flags := MarkDuplicates(stored, candidates, 0)
	if !flags[0] {
		t.Error("normalization should make the ROC-dated candidate match")
	}
}

func TestMarkDuplicatesExcludesEditedTransaction(t *testing.T) {
	stored := []Transaction{
		{ID: 42, Date: "2024/03/01", Time: "10:00:00", Ref: "R", Amount: dec("-50")},
	}
	candidates := []Candidate{
		{Date: "2024/03/01", Time: "10:00:00", Ref: "R", Amount: dec("-50")},
	}

	if flags := MarkDuplicates(stored, candidates, 42); flags[0] {
		t.Error("editing a transaction must not flag it against itself")
	}
	if flags := MarkDuplicates(stored, candidates, 0); !flags[0] {
		t.Error("without exclusion the same tuple must flag")
	}
}

func TestMarkDuplicatesEmptyStore(t *testing.T) {
	candidates := []Candidate{
		{Date: "2024/03/01", Amount: dec("10")},
		{Date: "2024/03/02", Amount: dec("20")},
	}
	flags := MarkDuplicates(nil, candidates, 0)
	for i, f := range flags {
		if f {
			t.Errorf("candidate %d flagged against an empty store", i)
		}
	}
}

func TestMarkDuplicatesExactAmountEquality(t *testing.T) {
	stored := []Transaction{
		{ID: 1, Date: "2024/03/01", Time: "00:00:00", Ref: "", Amount: dec("100.00")},
	}
	same := []Candidate{{Date: "2024/03/01", Ref: "", Amount: dec("100")}}
	off := []Candidate{{Date: "2024/03/01", Ref: "", Amount: dec("100.01")}}

	if flags := MarkDuplicates(stored, same, 0); !flags[0] {
		t.Error("100 and 100.00 are the same decimal value and must match")
	}
	if flags := MarkDuplicates(stored, off, 0); flags[0] {
		t.Error("no tolerance: 100.01 must not match 100.00")
	}
}

func TestHashStableAcrossRepresentations(t *testing.T) {
	a := NewFingerprint("112/01/05", "08:30", "R", dec("100")).Hash(3)
	b := NewFingerprint("2023-1-5", "08:30:00", "R", dec("100.00")).Hash(3)
	if a != b {
		t.Error("equivalent fingerprints must hash identically")
	}

	other := NewFingerprint("2023/01/05", "08:30:00", "R", dec("100")).Hash(4)
	if a == other {
		t.Error("hash must be account scoped")
	}
}
