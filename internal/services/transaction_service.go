package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionService orchestrates account and transaction operations across
// SQLite and AMQP.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

// CommitResult reports the outcome of a batch commit: how many candidate
// rows were inserted and how many were skipped as duplicates or invalid.
type CommitResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// --- accounts ---

func (s *TransactionService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	id, err := s.storage.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}
	return s.storage.GetAccount(ctx, id)
}

func (s *TransactionService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.storage.ListAccounts(ctx)
}

func (s *TransactionService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.storage.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return s.storage.GetAccount(ctx, a.ID)
}

func (s *TransactionService) DeleteAccount(ctx context.Context, id int64) error {
	return s.storage.DeleteAccount(ctx, id)
}

// EnsureAccountByNumber finds the account holding the given number,
// creating a placeholder OCR account when none exists. Manual saves key
// off the number so a screenshot can be committed before the user has set
// the account up.
func (s *TransactionService) EnsureAccountByNumber(ctx context.Context, number string) (core.Account, error) {
	account, err := s.storage.FindAccountByNumber(ctx, number)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Account{}, err
	}

	id, err := s.storage.CreateAccount(ctx, core.Account{
		Name:   "中華郵政(OCR)",
		Number: number,
	})
	if err != nil {
		return core.Account{}, err
	}
	return s.storage.GetAccount(ctx, id)
}

// --- transactions ---

func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx)
}

// CreateTransaction stores one manually entered transaction. Manual entry
// hard-rejects duplicates: a fingerprint collision is an error, not a skip.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Date = core.NormalizeDate(t.Date)
	t.Time = core.NormalizeTime(t.Time)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.storage.GetAccount(ctx, t.AccountID); err != nil {
		return core.Transaction{}, err
	}

	hash := core.TransactionFingerprint(t).Hash(t.AccountID)
	id, err := s.storage.InsertTransaction(ctx, t, hash)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.storage.GetTransaction(ctx, id)
}

// UpdateTransaction rewrites a transaction. The new fingerprint must not
// collide with any other stored transaction; colliding with itself is fine.
func (s *TransactionService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Date = core.NormalizeDate(t.Date)
	t.Time = core.NormalizeTime(t.Time)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	hash := core.TransactionFingerprint(t).Hash(t.AccountID)
	if err := s.storage.UpdateTransaction(ctx, t, hash); err != nil {
		return core.Transaction{}, err
	}
	return s.storage.GetTransaction(ctx, t.ID)
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	return s.storage.DeleteTransaction(ctx, id)
}

// CheckDuplicates flags which candidate rows already exist on the account.
// excludeID skips one stored transaction so an edit never matches itself.
func (s *TransactionService) CheckDuplicates(ctx context.Context, accountID int64, candidates []core.Candidate, excludeID int64) ([]bool, error) {
	stored, err := s.storage.ListAccountTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load stored transactions: %w", err)
	}
	return core.MarkDuplicates(stored, candidates, excludeID), nil
}

// CommitBatch inserts reviewed candidate rows into an account. Duplicates
// and rows whose date cannot be normalized are skipped and counted, never
// treated as errors; a re-imported statement commits cleanly with zero
// inserts.
func (s *TransactionService) CommitBatch(ctx context.Context, accountID int64, candidates []core.Candidate, source string) (CommitResult, error) {
	if _, err := s.storage.GetAccount(ctx, accountID); err != nil {
		return CommitResult{}, err
	}

	var result CommitResult
	for _, c := range candidates {
		if !c.Valid() {
			result.Skipped++
			continue
		}

		t := core.Transaction{
			AccountID: accountID,
			Date:      core.NormalizeDate(c.Date),
			Time:      core.NormalizeTime(c.Time),
			Summary:   c.Summary,
			Ref:       c.Ref,
			Amount:    c.Amount,
		}
		hash := core.CandidateFingerprint(c).Hash(accountID)

		_, err := s.storage.InsertTransaction(ctx, t, hash)
		switch {
		case errors.Is(err, core.ErrDuplicateTransaction):
			result.Skipped++
		case err != nil:
			return result, fmt.Errorf("insert candidate row: %w", err)
		default:
			result.Inserted++
		}
	}

	slog.InfoContext(ctx, "Batch committed",
		"account_id", accountID,
		"source", source,
		"inserted", result.Inserted,
		"skipped", result.Skipped)

	if err := s.publishBatchCommitted(ctx, accountID, source, result); err != nil {
		slog.ErrorContext(ctx, "Failed to publish batch event",
			"account_id", accountID, "error", err)
		// Don't fail the request - rows are committed locally
	}

	return result, nil
}

// MonthlyStats computes the aggregated monthly view for an optional account
// filter. A nil accountID means all accounts.
func (s *TransactionService) MonthlyStats(ctx context.Context, accountID *int64, month string) (core.MonthStats, error) {
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return core.MonthStats{}, fmt.Errorf("load transactions: %w", err)
	}
	return core.MonthlyStats(txs, accountID, month), nil
}

func (s *TransactionService) publishBatchCommitted(ctx context.Context, accountID int64, source string, result CommitResult) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping batch event")
		return nil
	}
	msg := amqp.NewBatchCommittedMessage(accountID, source, result.Inserted, result.Skipped)
	return s.amqpClient.PublishImportEvent(ctx, msg)
}

// Close closes both storage and AMQP connections
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
