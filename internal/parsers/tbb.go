package parsers

import (
	"regexp"
	"strings"

	"fintrack/internal/core"
)

func init() {
	Register("050", func() StatementParser { return &TBBParser{} })
}

// TBBParser handles 台灣企銀 (bank code 050) statements. TBB statements
// carry no per-row time and no reference number, so rows get a midnight
// timestamp and a fixed import marker.
type TBBParser struct{}

var (
	tbbAccountRe = regexp.MustCompile(`(?:帳號|050)[:\-\s]*\d+(\d{5})`)
	// date, summary, amount; summaries never contain digits or spaces
	tbbItemRe = regexp.MustCompile(`(\d{3,4}/\d{2}/\d{2})\s+([^\s\d]+)\s+([\d,]+)(?:\s|$)`)

	tbbScreenDateRe = regexp.MustCompile(`\d{3,4}[/\-]\d{2}[/\-]\d{2}`)
)

// tbbExpenseKeywords mark a statement row as expense; TBB statements default
// to income otherwise.
var tbbExpenseKeywords = []string{"支出", "提款", "扣款"}

const tbbRefPlaceholder = "PDF_IMPORT"

func (p *TBBParser) ParseStatement(text string) (Statement, error) {
	var st Statement

	if m := tbbAccountRe.FindStringSubmatch(text); m != nil {
		st.AccountNumber = m[1]
	}

	for _, m := range tbbItemRe.FindAllStringSubmatch(text, -1) {
		amount, err := parseAmount(m[3])
		if err != nil {
			continue
		}
		summary := m[2]
		signed := amount.Abs()
		for _, kw := range tbbExpenseKeywords {
			if strings.Contains(summary, kw) {
				signed = signed.Neg()
				break
			}
		}
		st.Rows = append(st.Rows, core.Candidate{
			Date:    m[1],
			Time:    "00:00:00",
			Summary: summary,
			Ref:     tbbRefPlaceholder,
			Amount:  signed,
		})
	}
	return st, nil
}

// ParseScreenshot reads the transfer confirmation screen of the TBB app.
// The section after 交易明細內容 holds date, time and amount before the 摘要
// label; the note follows it and the reference number follows 收付行.
func (p *TBBParser) ParseScreenshot(text string) (Screenshot, error) {
	sc := Screenshot{Row: core.Candidate{Summary: "台企銀轉帳"}}

	parts := strings.Split(text, "交易明細內容")
	body := parts[len(parts)-1]

	head := strings.Split(body, "摘要")[0]
	fields := strings.Fields(head)
	if len(fields) > 0 {
		if amount, err := parseAmount(fields[len(fields)-1]); err == nil {
			sc.Row.Amount = amount
		}
		sc.Row.Date = tbbScreenDateRe.FindString(fields[0])
	}
	if len(fields) > 1 {
		sc.Row.Time = clockRe.FindString(fields[1] + ":00")
	}

	if _, after, found := strings.Cut(body, "摘要"); found {
		if noteFields := strings.Fields(after); len(noteFields) > 0 {
			sc.Row.Summary = noteFields[0]
		}
	}

	if idx := strings.LastIndex(body, "收付行"); idx >= 0 {
		if refFields := strings.Fields(body[idx+len("收付行"):]); len(refFields) > 0 {
			sc.Row.Ref = refFields[0]
		}
	}
	return sc, nil
}
