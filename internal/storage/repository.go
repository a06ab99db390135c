package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// SQLiteRepository persists accounts and transactions. Amounts are stored as
// exact decimal strings; balances are summed in Go so no float rounding ever
// reaches the API.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (account_name, account_number, bank_code, initial_balance)
		VALUES (?, ?, ?, ?)`,
		a.Name, core.ShortNumber(a.Number), a.BankCode, a.InitialBalance.String())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrAccountNameTaken
		}
		return 0, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id, account_name, account_number, bank_code, initial_balance
		FROM accounts WHERE account_id = ?`, id)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

// ListAccounts returns every account with its computed running balance
// (initial balance + sum of associated transaction amounts).
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, account_name, account_number, bank_code, initial_balance
		FROM accounts ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	sums, err := r.sumByAccount(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].Balance = accounts[i].InitialBalance.Add(sums[accounts[i].ID])
	}
	return accounts, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET account_name = ?, account_number = ?, bank_code = ?, initial_balance = ?
		WHERE account_id = ?`,
		a.Name, core.ShortNumber(a.Number), a.BankCode, a.InitialBalance.String(), a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrAccountNameTaken
		}
		return fmt.Errorf("update account %d: %w", a.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteAccount removes an account. Deletion is blocked while transactions
// still reference it.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete account: %w", err)
	}
	defer tx.Rollback()

	// The emptiness check and the delete run in one transaction so a
	// concurrent batch commit cannot slip rows in between them.
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("count account transactions: %w", err)
	}
	if count > 0 {
		return core.ErrAccountHasTransactions
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return tx.Commit()
}

// FindAccountByNumber looks an account up by its stored (short) number.
func (r *SQLiteRepository) FindAccountByNumber(ctx context.Context, number string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id, account_name, account_number, bank_code, initial_balance
		FROM accounts WHERE account_number = ?`, core.ShortNumber(number))

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("find account by number: %w", err)
	}
	return a, nil
}

// --- transactions ---

const txColumns = `t.transaction_id, t.account_id, t.trans_date, t.trans_time, t.summary, t.ref_no, t.amount`

// ListTransactions returns all transactions joined with their account name,
// ordered by date descending then time descending.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`, a.account_name
		FROM transactions t
		JOIN accounts a ON t.account_id = a.account_id
		ORDER BY t.trans_date DESC, t.trans_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Date, &t.Time, &t.Summary, &t.Ref, &amount, &t.AccountName); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ListAccountTransactions returns the stored transactions of one account,
// the comparison set for the duplicate matcher.
func (r *SQLiteRepository) ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions t
		WHERE t.account_id = ?
		ORDER BY t.trans_date DESC, t.trans_time DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Date, &t.Time, &t.Summary, &t.Ref, &amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions t WHERE t.transaction_id = ?`, id)

	var t core.Transaction
	var amount string
	err := row.Scan(&t.ID, &t.AccountID, &t.Date, &t.Time, &t.Summary, &t.Ref, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return t, nil
}

// InsertTransaction stores one transaction under its fingerprint hash. The
// unique index on the hash enforces the per-account fingerprint invariant;
// collisions surface as core.ErrDuplicateTransaction.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction, hash string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (account_id, trans_date, trans_time, summary, ref_no, amount, trace_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, t.Date, t.Time, t.Summary, t.Ref, t.Amount.String(), hash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrDuplicateTransaction
		}
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}
	return id, nil
}

// UpdateTransaction rewrites a transaction and its fingerprint hash. When
// another stored transaction already carries the new hash the update is a
// duplicate and is refused.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction, hash string) error {
	var existing int64
	err := r.db.QueryRowContext(ctx, `
		SELECT transaction_id FROM transactions
		WHERE trace_hash = ? AND transaction_id != ?`, hash, t.ID).Scan(&existing)
	switch {
	case err == nil:
		return core.ErrDuplicateTransaction
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check hash collision: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, trans_date = ?, trans_time = ?, summary = ?, ref_no = ?, amount = ?, trace_hash = ?
		WHERE transaction_id = ?`,
		t.AccountID, t.Date, t.Time, t.Summary, t.Ref, t.Amount.String(), hash, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE transaction_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- helpers ---

func (r *SQLiteRepository) sumByAccount(ctx context.Context) (map[int64]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT account_id, amount FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	sums := map[int64]decimal.Decimal{}
	for rows.Next() {
		var id int64
		var amount string
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		sums[id] = sums[id].Add(d)
	}
	return sums, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	var initial string
	if err := row.Scan(&a.ID, &a.Name, &a.Number, &a.BankCode, &initial); err != nil {
		return core.Account{}, err
	}
	var err error
	if a.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return core.Account{}, fmt.Errorf("parse initial balance %q: %w", initial, err)
	}
	a.Balance = a.InitialBalance
	return a, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
