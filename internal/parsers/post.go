package parsers

import (
	"regexp"
	"strings"

	"fintrack/internal/core"
)

func init() {
	Register("700", func() StatementParser { return &PostOfficeParser{} })
}

// PostOfficeParser handles 中華郵政 (bank code 700) statements. Statement
// dates come in ROC calendar form (e.g. 112/05/20) and are left as-is here;
// normalization happens at fingerprint and commit time.
type PostOfficeParser struct{}

var (
	// statements pad the label with full-width spaces, which \s does not cover
	postAccountRe = regexp.MustCompile(`帳[\s　]+號[:：\s　]*([\d*\-]+)`)
	// date, time, summary, ref, amount on one statement line
	postItemRe = regexp.MustCompile(`(\d{3}/\d{2}/\d{2})\s+(\d{2}:\d{2}:\d{2})\s+(\S+)\s+(.*?)\s+([\d,]+)(?:\n|$)`)

	postScreenAccountRe = regexp.MustCompile(`帳\s*號\s*[*\d\-]*?(\d{5})`)
	rocDateRe           = regexp.MustCompile(`\d{3}/\d{2}/\d{2}`)
	clockRe             = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
	cjkRe               = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
)

// postIncomeKeywords mark a statement row as income; everything else on a
// postal statement is an expense.
var postIncomeKeywords = []string{"薪資", "利息", "轉入", "存入", "退款"}

func (p *PostOfficeParser) ParseStatement(text string) (Statement, error) {
	var st Statement

	if m := postAccountRe.FindStringSubmatch(text); m != nil {
		raw := strings.TrimSpace(m[1])
		raw = strings.NewReplacer("*", "", "-", "").Replace(core.ShortNumber(raw))
		st.AccountNumber = raw
	}

	for _, m := range postItemRe.FindAllStringSubmatch(text, -1) {
		amount, err := parseAmount(m[5])
		if err != nil {
			continue
		}
		summary := m[3]
		st.Rows = append(st.Rows, core.Candidate{
			Date:    m[1],
			Time:    m[2],
			Summary: summary,
			Ref:     strings.TrimSpace(m[4]),
			Amount:  signByKeywords(amount, summary, postIncomeKeywords),
		})
	}
	return st, nil
}

// ParseScreenshot splits the OCR text on the 交易 marker the postal app
// prints between sections: amount and summary live in the first section,
// date and time in the second, the reference number in the third.
func (p *PostOfficeParser) ParseScreenshot(text string) (Screenshot, error) {
	var sc Screenshot
	sections := strings.Split(text, "交易")
	if len(sections) == 0 {
		return sc, nil
	}

	first := sections[0]
	if m := postScreenAccountRe.FindStringSubmatch(first); m != nil {
		sc.AccountNumber = m[1]
	}

	if fields := strings.Fields(first); len(fields) > 0 {
		if amount, err := parseAmount(fields[len(fields)-1]); err == nil {
			sc.Row.Amount = amount
		}
	}

	withoutLabel := strings.ReplaceAll(first, "帳號", "")
	sc.Row.Summary = strings.Join(cjkRe.FindAllString(withoutLabel, -1), "")

	if len(sections) > 1 {
		sc.Row.Date = rocDateRe.FindString(sections[1])
		sc.Row.Time = clockRe.FindString(sections[1])
	}
	if len(sections) > 2 {
		if fields := strings.Fields(sections[2]); len(fields) > 1 {
			sc.Row.Ref = fields[1]
		}
	}
	return sc, nil
}
