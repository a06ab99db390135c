// Package export renders transaction lists as CSV downloads.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// csvRow is the export row shape. Amounts are written with two decimal
// places so spreadsheets parse them consistently.
type csvRow struct {
	Date        string `csv:"date"`
	Time        string `csv:"time"`
	AccountName string `csv:"account"`
	Summary     string `csv:"summary"`
	Ref         string `csv:"ref_no"`
	Amount      string `csv:"amount"`
}

// CSVExporter streams filtered transaction lists as CSV.
type CSVExporter struct {
	txService *services.TransactionService
}

func NewCSVExporter(txService *services.TransactionService) *CSVExporter {
	return &CSVExporter{txService: txService}
}

// WriteMonth writes the transactions of one month (optionally one account)
// to w. Row order matches the API: date descending, time descending.
func (e *CSVExporter) WriteMonth(ctx context.Context, w io.Writer, accountID *int64, month string) (int, error) {
	stats, err := e.txService.MonthlyStats(ctx, accountID, month)
	if err != nil {
		return 0, fmt.Errorf("load month: %w", err)
	}
	return len(stats.Transactions), e.write(w, stats.Transactions)
}

func (e *CSVExporter) write(w io.Writer, txs []core.Transaction) error {
	rows := make([]csvRow, len(txs))
	for i, t := range txs {
		rows[i] = csvRow{
			Date:        t.Date,
			Time:        t.Time,
			AccountName: t.AccountName,
			Summary:     t.Summary,
			Ref:         t.Ref,
			Amount:      t.Amount.StringFixed(2),
		}
	}

	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := gocsv.MarshalCSV(&rows, writer); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}
