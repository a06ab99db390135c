package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.txService.ListTransactions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// transactionRequest is the save-manual and transaction-update body. Rows
// arrive with the candidate keys (date, time); save-manual may name the
// account by number instead of id, auto-creating it for OCR saves.
type transactionRequest struct {
	AccountID     int64           `json:"account_id"`
	AccountNumber string          `json:"account_number"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Summary       string          `json:"summary"`
	Ref           string          `json:"ref_no"`
	Amount        decimal.Decimal `json:"amount"`
}

func (req transactionRequest) transaction() core.Transaction {
	t := core.Transaction{
		AccountID: req.AccountID,
		Date:      req.Date,
		Time:      req.Time,
		Summary:   req.Summary,
		Ref:       req.Ref,
		Amount:    req.Amount,
	}
	if t.Time == "" {
		t.Time = "00:00:00"
	}
	return t
}

func (s *Server) handleSaveManual(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid request body"})
		return
	}

	t := req.transaction()
	if t.AccountID == 0 {
		number := req.AccountNumber
		if number == "" {
			number = "Manual-Import"
		}
		account, err := s.txService.EnsureAccountByNumber(r.Context(), number)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		t.AccountID = account.ID
	}

	created, err := s.txService.CreateTransaction(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, created.ID)
}

// batchRequest carries the reviewed rows of one import session.
type batchRequest struct {
	AccountID    int64            `json:"account_id"`
	SessionID    string           `json:"session_id,omitempty"`
	Source       string           `json:"source,omitempty"`
	Transactions []core.Candidate `json:"transactions"`
}

type batchResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

func (s *Server) handleSaveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid request body"})
		return
	}
	if req.Source == "" {
		req.Source = "batch"
	}

	var (
		result services.CommitResult
		err    error
	)
	if req.SessionID != "" {
		result, err = s.importService.Commit(r.Context(), req.SessionID, req.AccountID, req.Transactions, req.Source)
	} else {
		result, err = s.txService.CommitBatch(r.Context(), req.AccountID, req.Transactions, req.Source)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Inserted: result.Inserted, Skipped: result.Skipped})
}

type checkDuplicatesRequest struct {
	AccountID            int64            `json:"account_id"`
	SessionID            string           `json:"session_id,omitempty"`
	ExcludeTransactionID int64            `json:"exclude_transaction_id,omitempty"`
	Transactions         []core.Candidate `json:"transactions"`
}

type checkDuplicatesResponse struct {
	Success    bool   `json:"success"`
	Duplicates []bool `json:"duplicates"`
}

func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req checkDuplicatesRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid request body"})
		return
	}

	var (
		flags []bool
		err   error
	)
	if req.SessionID != "" {
		flags, err = s.importService.Recheck(r.Context(), req.SessionID, req.AccountID, req.Transactions, req.ExcludeTransactionID)
	} else {
		flags, err = s.txService.CheckDuplicates(r.Context(), req.AccountID, req.Transactions, req.ExcludeTransactionID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkDuplicatesResponse{Success: true, Duplicates: flags})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid transaction id"})
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid request body"})
		return
	}
	t := req.transaction()
	t.ID = id

	if _, err := s.txService.UpdateTransaction(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, id)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid transaction id"})
		return
	}

	if err := s.txService.DeleteTransaction(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, id)
}

// handleStats serves the monthly view: filtered transactions plus income
// and expense groups. Defaults to the initial month when none is given.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var accountID *int64
	if v := r.URL.Query().Get("account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid account_id"})
			return
		}
		accountID = &id
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		txs, err := s.txService.ListTransactions(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		month = core.InitialMonth(txs, time.Now())
	}

	stats, err := s.txService.MonthlyStats(r.Context(), accountID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
