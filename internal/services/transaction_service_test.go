package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newTestService(t *testing.T) *TransactionService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	svc := NewTransactionService(repo, nil)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func createAccount(t *testing.T, svc *TransactionService, name string) core.Account {
	t.Helper()
	a, err := svc.CreateAccount(context.Background(), core.Account{
		Name:           name,
		Number:         "1234567890",
		BankCode:       "700",
		InitialBalance: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func TestCreateTransactionNormalizesROCDate(t *testing.T) {
	svc := newTestService(t)
	a := createAccount(t, svc, "postal")

	tx, err := svc.CreateTransaction(context.Background(), core.Transaction{
		AccountID: a.ID,
		Date:      "112/05/20",
		Time:      "14:25",
		Summary:   "轉帳",
		Ref:       "R1",
		Amount:    decimal.NewFromInt(-500),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.Date != "2023/05/20" {
		t.Errorf("date = %q, want %q", tx.Date, "2023/05/20")
	}
	if tx.Time != "14:25:00" {
		t.Errorf("time = %q, want %q", tx.Time, "14:25:00")
	}
}

func TestCreateTransactionManualDuplicateRejected(t *testing.T) {
	svc := newTestService(t)
	a := createAccount(t, svc, "postal")
	ctx := context.Background()

	base := core.Transaction{
		AccountID: a.ID,
		Date:      "2023/05/20",
		Time:      "14:25:00",
		Summary:   "轉帳",
		Ref:       "R1",
		Amount:    decimal.NewFromInt(-500),
	}
	if _, err := svc.CreateTransaction(ctx, base); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Same fingerprint with different summary text is still a duplicate.
	dup := base
	dup.Summary = "午餐轉帳"
	if _, err := svc.CreateTransaction(ctx, dup); !errors.Is(err, core.ErrDuplicateTransaction) {
		t.Errorf("duplicate create = %v, want ErrDuplicateTransaction", err)
	}
}

func TestCreateTransactionUnknownAccount(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateTransaction(context.Background(), core.Transaction{
		AccountID: 77,
		Date:      "2023/05/20",
		Amount:    decimal.NewFromInt(1),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("create on missing account = %v, want ErrNotFound", err)
	}
}

func TestCommitBatchSkipsDuplicatesAndInvalidRows(t *testing.T) {
	svc := newTestService(t)
	a := createAccount(t, svc, "postal")
	ctx := context.Background()

	rows := []core.Candidate{
		{Date: "112/05/01", Time: "08:00:00", Summary: "薪資", Ref: "A", Amount: decimal.NewFromInt(50000)},
		{Date: "112/05/02", Time: "12:00:00", Summary: "午餐", Ref: "B", Amount: decimal.NewFromInt(-120)},
		{Date: "garbage", Summary: "壞掉的列", Amount: decimal.NewFromInt(1)},
	}

	result, err := svc.CommitBatch(ctx, a.ID, rows, "pdf")
	if err != nil {
		t.Fatalf("first CommitBatch: %v", err)
	}
	if result.Inserted != 2 || result.Skipped != 1 {
		t.Errorf("first commit = %+v, want inserted 2 skipped 1", result)
	}

	// Re-importing the same statement commits cleanly with zero inserts.
	result, err = svc.CommitBatch(ctx, a.ID, rows, "pdf")
	if err != nil {
		t.Fatalf("second CommitBatch: %v", err)
	}
	if result.Inserted != 0 || result.Skipped != 3 {
		t.Errorf("second commit = %+v, want inserted 0 skipped 3", result)
	}

	txs, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("stored %d transactions, want 2", len(txs))
	}
	// Batch rows are committed with normalized dates.
	for _, tx := range txs {
		if !core.IsCanonicalDate(tx.Date) {
			t.Errorf("stored date %q is not canonical", tx.Date)
		}
	}
}

func TestCheckDuplicatesIgnoresSummaryAndHonorsExclude(t *testing.T) {
	svc := newTestService(t)
	a := createAccount(t, svc, "postal")
	ctx := context.Background()

	stored, err := svc.CreateTransaction(ctx, core.Transaction{
		AccountID: a.ID,
		Date:      "2023/05/20",
		Time:      "14:25:00",
		Summary:   "轉帳",
		Ref:       "R1",
		Amount:    decimal.NewFromInt(-500),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	candidates := []core.Candidate{
		{Date: "112/05/20", Time: "14:25:00", Summary: "完全不同的摘要", Ref: "R1", Amount: decimal.NewFromInt(-500)},
		{Date: "112/05/21", Time: "14:25:00", Summary: "轉帳", Ref: "R1", Amount: decimal.NewFromInt(-500)},
	}

	flags, err := svc.CheckDuplicates(ctx, a.ID, candidates, 0)
	if err != nil {
		t.Fatalf("CheckDuplicates: %v", err)
	}
	if !flags[0] || flags[1] {
		t.Errorf("flags = %v, want [true false]", flags)
	}

	// Excluding the stored transaction clears its own match.
	flags, err = svc.CheckDuplicates(ctx, a.ID, candidates, stored.ID)
	if err != nil {
		t.Fatalf("CheckDuplicates with exclude: %v", err)
	}
	if flags[0] {
		t.Errorf("flags with exclude = %v, want [false false]", flags)
	}
}

func TestUpdateTransactionDuplicateCollision(t *testing.T) {
	svc := newTestService(t)
	a := createAccount(t, svc, "postal")
	ctx := context.Background()

	first, err := svc.CreateTransaction(ctx, core.Transaction{
		AccountID: a.ID, Date: "2023/05/20", Time: "09:00:00", Ref: "A", Summary: "一", Amount: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.CreateTransaction(ctx, core.Transaction{
		AccountID: a.ID, Date: "2023/05/21", Time: "09:00:00", Ref: "B", Summary: "二", Amount: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	second.Date = first.Date
	second.Time = first.Time
	second.Ref = first.Ref
	second.Amount = first.Amount
	if _, err := svc.UpdateTransaction(ctx, second); !errors.Is(err, core.ErrDuplicateTransaction) {
		t.Errorf("colliding update = %v, want ErrDuplicateTransaction", err)
	}

	// Editing only the summary keeps the fingerprint and must succeed.
	first.Summary = "改過的摘要"
	if _, err := svc.UpdateTransaction(ctx, first); err != nil {
		t.Errorf("summary-only update = %v, want nil", err)
	}
}

func TestMonthlyStatsThroughService(t *testing.T) {
	svc := newTestService(t)
	a := createAccount(t, svc, "postal")
	ctx := context.Background()

	rows := []core.Candidate{
		{Date: "2023/05/01", Time: "08:00:00", Summary: "薪資", Ref: "A", Amount: decimal.NewFromInt(100)},
		{Date: "2023/05/02", Time: "12:00:00", Summary: "午餐", Ref: "B", Amount: decimal.NewFromInt(-80)},
		{Date: "2023/06/01", Time: "08:00:00", Summary: "薪資", Ref: "C", Amount: decimal.NewFromInt(100)},
	}
	if _, err := svc.CommitBatch(ctx, a.ID, rows, "test"); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	stats, err := svc.MonthlyStats(ctx, &a.ID, "2023-05")
	if err != nil {
		t.Fatalf("MonthlyStats: %v", err)
	}
	if len(stats.Transactions) != 2 {
		t.Errorf("got %d transactions, want 2", len(stats.Transactions))
	}
	if !stats.TotalIncome.Equal(decimal.NewFromInt(100)) {
		t.Errorf("total income = %s, want 100", stats.TotalIncome)
	}
	if !stats.TotalExpense.Equal(decimal.NewFromInt(-80)) {
		t.Errorf("total expense = %s, want -80", stats.TotalExpense)
	}
}
