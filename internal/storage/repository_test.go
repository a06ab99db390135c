package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreateAccount(t *testing.T, repo *SQLiteRepository, name string) int64 {
	t.Helper()
	id, err := repo.CreateAccount(context.Background(), core.Account{
		Name:           name,
		Number:         "0001234567890",
		BankCode:       "700",
		InitialBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return id
}

func TestCreateAccountStoresShortNumber(t *testing.T) {
	repo := newTestRepo(t)
	id := mustCreateAccount(t, repo, "salary")

	a, err := repo.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if a.Number != "67890" {
		t.Errorf("account number = %q, want last five digits %q", a.Number, "67890")
	}
	if !a.InitialBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("initial balance = %s, want 1000", a.InitialBalance)
	}
}

func TestCreateAccountDuplicateName(t *testing.T) {
	repo := newTestRepo(t)
	mustCreateAccount(t, repo, "salary")

	_, err := repo.CreateAccount(context.Background(), core.Account{Name: "salary", BankCode: "050"})
	if !errors.Is(err, core.ErrAccountNameTaken) {
		t.Errorf("duplicate name error = %v, want ErrAccountNameTaken", err)
	}
}

func TestListAccountsComputesBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateAccount(t, repo, "salary")

	insertTx(t, repo, id, "2024/01/10", "09:00:00", "薪資", "A1", "100.50")
	insertTx(t, repo, id, "2024/01/12", "10:00:00", "咖啡", "A2", "-20.25")

	accounts, err := repo.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(accounts))
	}
	want := decimal.RequireFromString("1080.25")
	if !accounts[0].Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", accounts[0].Balance, want)
	}
}

func TestDeleteAccountBlockedByTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateAccount(t, repo, "salary")
	insertTx(t, repo, id, "2024/01/10", "09:00:00", "薪資", "A1", "100")

	if err := repo.DeleteAccount(ctx, id); !errors.Is(err, core.ErrAccountHasTransactions) {
		t.Fatalf("delete with transactions = %v, want ErrAccountHasTransactions", err)
	}

	txs, err := repo.ListAccountTransactions(ctx, id)
	if err != nil {
		t.Fatalf("ListAccountTransactions: %v", err)
	}
	for _, tx := range txs {
		if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
	}

	if err := repo.DeleteAccount(ctx, id); err != nil {
		t.Fatalf("delete empty account: %v", err)
	}
	if _, err := repo.GetAccount(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get deleted account = %v, want ErrNotFound", err)
	}
}

func TestInsertTransactionDuplicateHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateAccount(t, repo, "salary")

	tx := core.Transaction{
		AccountID: id,
		Date:      "2024/01/10",
		Time:      "09:00:00",
		Summary:   "薪資",
		Ref:       "A1",
		Amount:    decimal.NewFromInt(100),
	}
	hash := core.TransactionFingerprint(tx).Hash(id)

	if _, err := repo.InsertTransaction(ctx, tx, hash); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	tx.Summary = "一月薪資"
	if _, err := repo.InsertTransaction(ctx, tx, hash); !errors.Is(err, core.ErrDuplicateTransaction) {
		t.Errorf("second insert = %v, want ErrDuplicateTransaction", err)
	}
}

func TestUpdateTransactionHashCollision(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateAccount(t, repo, "salary")

	firstID := insertTx(t, repo, id, "2024/01/10", "09:00:00", "薪資", "A1", "100")
	secondID := insertTx(t, repo, id, "2024/01/11", "10:00:00", "咖啡", "A2", "-20")

	second, err := repo.GetTransaction(ctx, secondID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	// Rewrite the second transaction into a copy of the first.
	second.Date = "2024/01/10"
	second.Time = "09:00:00"
	second.Ref = "A1"
	second.Amount = decimal.NewFromInt(100)
	hash := core.TransactionFingerprint(second).Hash(id)

	err = repo.UpdateTransaction(ctx, second, hash)
	if !errors.Is(err, core.ErrDuplicateTransaction) {
		t.Errorf("colliding update = %v, want ErrDuplicateTransaction", err)
	}

	// Updating a transaction onto its own hash must stay legal.
	first, err := repo.GetTransaction(ctx, firstID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	first.Summary = "一月薪資"
	if err := repo.UpdateTransaction(ctx, first, core.TransactionFingerprint(first).Hash(id)); err != nil {
		t.Errorf("self update = %v, want nil", err)
	}
}

func TestListTransactionsOrderAndJoin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateAccount(t, repo, "salary")

	insertTx(t, repo, id, "2024/01/10", "09:00:00", "早", "A1", "10")
	insertTx(t, repo, id, "2024/01/12", "08:00:00", "晚", "A2", "20")
	insertTx(t, repo, id, "2024/01/12", "18:00:00", "最晚", "A3", "30")

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	gotOrder := []string{txs[0].Summary, txs[1].Summary, txs[2].Summary}
	wantOrder := []string{"最晚", "晚", "早"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
	if txs[0].AccountName != "salary" {
		t.Errorf("account name = %q, want %q", txs[0].AccountName, "salary")
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetTransaction(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing transaction = %v, want ErrNotFound", err)
	}
}

func TestFindAccountByNumber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateAccount(t, repo, "salary")

	// Lookup accepts the full number and matches on the stored short form.
	a, err := repo.FindAccountByNumber(ctx, "0001234567890")
	if err != nil {
		t.Fatalf("FindAccountByNumber: %v", err)
	}
	if a.ID != id {
		t.Errorf("found account %d, want %d", a.ID, id)
	}

	if _, err := repo.FindAccountByNumber(ctx, "99999"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown number = %v, want ErrNotFound", err)
	}
}

func insertTx(t *testing.T, repo *SQLiteRepository, accountID int64, date, tm, summary, ref, amount string) int64 {
	t.Helper()
	tx := core.Transaction{
		AccountID: accountID,
		Date:      date,
		Time:      tm,
		Summary:   summary,
		Ref:       ref,
		Amount:    decimal.RequireFromString(amount),
	}
	id, err := repo.InsertTransaction(context.Background(), tx, core.TransactionFingerprint(tx).Hash(accountID))
	if err != nil {
		t.Fatalf("InsertTransaction(%s %s): %v", date, ref, err)
	}
	return id
}
