package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SummaryGroup aggregates the transactions sharing one trimmed summary
// string within a month.
type SummaryGroup struct {
	Name  string          `json:"name"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// MonthStats is the monthly view: the filtered transaction list plus the
// income and expense groupings with their signed totals.
type MonthStats struct {
	Month        string          `json:"month"`
	Transactions []Transaction   `json:"transactions"`
	Income       []SummaryGroup  `json:"income"`
	Expense      []SummaryGroup  `json:"expense"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// MonthKey derives the YYYY-MM key from a canonical YYYY/MM/DD date.
func MonthKey(date string) string {
	if len(date) < 7 {
		return ""
	}
	return date[0:4] + "-" + date[5:7]
}

// FormatMonth renders a point in time as a YYYY-MM key.
func FormatMonth(t time.Time) string {
	return t.Format("2006-01")
}

// FilterMonth returns the transactions matching the account filter (nil
// means all accounts) and the YYYY-MM month key, sorted by date descending
// then time descending. Canonical dates are fixed-width and zero-padded, so
// lexical comparison orders correctly.
func FilterMonth(txs []Transaction, accountID *int64, month string) []Transaction {
	filtered := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if accountID != nil && t.AccountID != *accountID {
			continue
		}
		if t.Date == "" || MonthKey(t.Date) != month {
			continue
		}
		filtered = append(filtered, t)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Date != filtered[j].Date {
			return filtered[i].Date > filtered[j].Date
		}
		return filtered[i].Time > filtered[j].Time
	})
	return filtered
}

// Summarize groups transactions by trimmed summary into income (amount ≥ 0)
// and expense (amount < 0) buckets. Income groups are sorted by total
// descending, expense groups by total ascending so the heaviest movers come
// first on both sides. Ties break on group name to keep output stable.
func Summarize(txs []Transaction) (stats MonthStats) {
	stats.TotalIncome = decimal.Zero
	stats.TotalExpense = decimal.Zero
	stats.Income = []SummaryGroup{}
	stats.Expense = []SummaryGroup{}

	income := map[string]*SummaryGroup{}
	expense := map[string]*SummaryGroup{}

	for _, t := range txs {
		name := strings.TrimSpace(t.Summary)
		if t.Amount.Sign() >= 0 {
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
			addToGroup(income, name, t.Amount)
		} else {
			stats.TotalExpense = stats.TotalExpense.Add(t.Amount)
			addToGroup(expense, name, t.Amount)
		}
	}

	stats.Income = sortGroups(income, true)
	stats.Expense = sortGroups(expense, false)
	stats.Transactions = txs
	return stats
}

// MonthlyStats combines filtering and grouping for one account filter and
// month key.
func MonthlyStats(txs []Transaction, accountID *int64, month string) MonthStats {
	stats := Summarize(FilterMonth(txs, accountID, month))
	stats.Month = month
	return stats
}

// InitialMonth picks the month shown on first load: the current calendar
// month when any transaction falls in it, otherwise the month of the most
// recent transaction, and the current month again when the store is empty.
func InitialMonth(txs []Transaction, now time.Time) string {
	current := FormatMonth(now)
	latest := ""
	for _, t := range txs {
		key := MonthKey(t.Date)
		if key == "" {
			continue
		}
		if key == current {
			return current
		}
		if key > latest {
			latest = key
		}
	}
	if latest != "" {
		return latest
	}
	return current
}

func addToGroup(groups map[string]*SummaryGroup, name string, amount decimal.Decimal) {
	g, ok := groups[name]
	if !ok {
		g = &SummaryGroup{Name: name, Total: decimal.Zero}
		groups[name] = g
	}
	g.Count++
	g.Total = g.Total.Add(amount)
}

func sortGroups(groups map[string]*SummaryGroup, descending bool) []SummaryGroup {
	out := make([]SummaryGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			if descending {
				return out[i].Total.GreaterThan(out[j].Total)
			}
			return out[i].Total.LessThan(out[j].Total)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
