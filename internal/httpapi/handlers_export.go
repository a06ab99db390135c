package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
)

// handleExport streams the filtered month as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transactions-"+month+".csv"))

	if _, err := s.exporter.WriteMonth(r.Context(), w, accountID, month); err != nil {
		// Headers are already out; the truncated body is the best we can do.
		s.writeError(w, r, err)
	}
}
