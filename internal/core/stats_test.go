package core

import (
	"testing"
	"time"
)

func TestMonthKey(t *testing.T) {
	if got := MonthKey("2024/03/15"); got != "2024-03" {
		t.Errorf("MonthKey = %q, want 2024-03", got)
	}
	if got := MonthKey("short"); got != "" {
		t.Errorf("MonthKey on malformed input = %q, want empty", got)
	}
}

func TestMonthlyStatsTotalsAndOrdering(t *testing.T) {
	txs := []Transaction{
		{AccountID: 1, Date: "2024/03/01", Time: "09:00:00", Summary: "salary", Amount: dec("100")},
		{AccountID: 1, Date: "2024/03/02", Time: "12:00:00", Summary: "lunch", Amount: dec("-50")},
		{AccountID: 1, Date: "2024/03/02", Time: "08:00:00", Summary: "coffee", Amount: dec("-30")},
		{AccountID: 1, Date: "2024/04/01", Time: "09:00:00", Summary: "out of month", Amount: dec("999")},
	}

	stats := MonthlyStats(txs, nil, "2024-03")

	if len(stats.Transactions) != 3 {
		t.Fatalf("filtered %d transactions, want 3", len(stats.Transactions))
	}
	if !stats.TotalIncome.Equal(dec("100")) {
		t.Errorf("total income = %s, want 100", stats.TotalIncome)
	}
	if !stats.TotalExpense.Equal(dec("-80")) {
		t.Errorf("total expense = %s, want -80", stats.TotalExpense)
	}

	// Date desc, then time desc.
	wantOrder := []string{"lunch", "coffee", "salary"}
	for i, want := range wantOrder {
		if stats.Transactions[i].Summary != want {
			t.Errorf("position %d = %q, want %q", i, stats.Transactions[i].Summary, want)
		}
	}

	// Expense groups ascending by signed total: -50 before -30.
	if len(stats.Expense) != 2 {
		t.Fatalf("expense groups = %d, want 2", len(stats.Expense))
	}
	if stats.Expense[0].Name != "lunch" || stats.Expense[1].Name != "coffee" {
		t.Errorf("expense order = %q, %q; want lunch, coffee", stats.Expense[0].Name, stats.Expense[1].Name)
	}
}

func TestSummarizeGroupsByTrimmedSummary(t *testing.T) {
	txs := []Transaction{
		{Date: "2024/03/01", Summary: " transfer ", Amount: dec("10")},
		{Date: "2024/03/02", Summary: "transfer", Amount: dec("40")},
		{Date: "2024/03/03", Summary: "interest", Amount: dec("5")},
	}

	stats := Summarize(txs)
	if len(stats.Income) != 2 {
		t.Fatalf("income groups = %d, want 2", len(stats.Income))
	}
	// Income sorted descending by total: transfer (50) before interest (5).
	if stats.Income[0].Name != "transfer" || stats.Income[0].Count != 2 || !stats.Income[0].Total.Equal(dec("50")) {
		t.Errorf("first income group = %+v, want transfer/2/50", stats.Income[0])
	}
}

func TestFilterMonthByAccount(t *testing.T) {
	txs := []Transaction{
		{AccountID: 1, Date: "2024/03/01", Amount: dec("10")},
		{AccountID: 2, Date: "2024/03/01", Amount: dec("20")},
	}

	one := int64(1)
	got := FilterMonth(txs, &one, "2024-03")
	if len(got) != 1 || got[0].AccountID != 1 {
		t.Errorf("account filter returned %d rows", len(got))
	}

	// Account with nothing: empty list and empty groupings, no error.
	three := int64(3)
	stats := MonthlyStats(txs, &three, "2024-03")
	if len(stats.Transactions) != 0 || len(stats.Income) != 0 || len(stats.Expense) != 0 {
		t.Error("empty account should yield empty list and empty stat groups")
	}
}

func TestInitialMonth(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("prefers current month when populated", func(t *testing.T) {
		txs := []Transaction{
			{Date: "2023/11/01"},
			{Date: "2024/01/05"},
		}
		if got := InitialMonth(txs, now); got != "2024-01" {
			t.Errorf("InitialMonth = %q, want 2024-01", got)
		}
	})

	t.Run("falls back to most recent month", func(t *testing.T) {
		txs := []Transaction{
			{Date: "2023/09/01"},
			{Date: "2023/11/20"},
			{Date: "2023/10/05"},
		}
		if got := InitialMonth(txs, now); got != "2023-11" {
			t.Errorf("InitialMonth = %q, want 2023-11", got)
		}
	})

	t.Run("defaults to current month when empty", func(t *testing.T) {
		if got := InitialMonth(nil, now); got != "2024-01" {
			t.Errorf("InitialMonth = %q, want 2024-01", got)
		}
	})
}
