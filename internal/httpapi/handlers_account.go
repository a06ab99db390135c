package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// accountRequest is the create/update body. The frontend sends the short
// keys, not the column names the list endpoint returns.
type accountRequest struct {
	Name        string          `json:"name"`
	Number      string          `json:"number"`
	BankCode    string          `json:"bank_code"`
	InitBalance decimal.Decimal `json:"init_balance"`
}

func (req accountRequest) account() core.Account {
	return core.Account{
		Name:           req.Name,
		Number:         req.Number,
		BankCode:       req.BankCode,
		InitialBalance: req.InitBalance,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.txService.ListAccounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid request body"})
		return
	}

	created, err := s.txService.CreateAccount(r.Context(), req.account())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, created.ID)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid account id"})
		return
	}

	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid request body"})
		return
	}
	a := req.account()
	a.ID = id

	if _, err := s.txService.UpdateAccount(r.Context(), a); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, id)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Success: false, Message: "invalid account id"})
		return
	}

	if err := s.txService.DeleteAccount(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, id)
}
