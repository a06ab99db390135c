package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// GenericConfig drives the regex-based parser for banks without a dedicated
// implementation. Group indexes are 1-based capture group numbers into
// RegexPattern. Exactly one of IncomeKeywords or ExpenseKeywords should be
// set; it decides the default sign of unmatched rows.
type GenericConfig struct {
	RegexPattern    string         `json:"regex_pattern"`
	Groups          map[string]int `json:"groups"`
	IncomeKeywords  []string       `json:"income_keywords,omitempty"`
	ExpenseKeywords []string       `json:"expense_keywords,omitempty"`
	AccountPattern  string         `json:"account_pattern,omitempty"`
	AccountGroup    int            `json:"account_group,omitempty"`
}

// GenericParser parses any bank whose statement rows can be captured with a
// single configured regular expression.
type GenericParser struct {
	cfg GenericConfig
}

func NewGenericParser(cfg GenericConfig) *GenericParser {
	return &GenericParser{cfg: cfg}
}

const genericDefaultSummary = "Generic Import"

func (p *GenericParser) ParseStatement(text string) (Statement, error) {
	pattern, err := regexp.Compile(p.cfg.RegexPattern)
	if err != nil {
		return Statement{}, fmt.Errorf("compile row pattern: %w", err)
	}

	var st Statement
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		date := p.group(m, "date")
		amountStr := p.group(m, "amount")
		if date == "" || amountStr == "" {
			continue
		}
		amount, err := parseAmount(amountStr)
		if err != nil {
			continue
		}

		row := core.Candidate{
			Date:    date,
			Time:    p.group(m, "time"),
			Summary: strings.TrimSpace(p.group(m, "summary")),
			Ref:     strings.TrimSpace(p.group(m, "ref")),
			Amount:  p.sign(amount, p.group(m, "summary")),
		}
		if row.Time == "" {
			row.Time = "00:00:00"
		}
		if row.Summary == "" {
			row.Summary = genericDefaultSummary
		}
		st.Rows = append(st.Rows, row)
	}

	st.AccountNumber = p.accountNumber(text)
	return st, nil
}

// ParseScreenshot is not configurable; banks needing screenshot support get
// a dedicated parser.
func (p *GenericParser) ParseScreenshot(string) (Screenshot, error) {
	return Screenshot{}, fmt.Errorf("screenshot parsing is not supported for this bank")
}

func (p *GenericParser) group(m []string, name string) string {
	idx, ok := p.cfg.Groups[name]
	if !ok || idx < 1 || idx >= len(m) {
		return ""
	}
	return m[idx]
}

func (p *GenericParser) sign(amount decimal.Decimal, summary string) decimal.Decimal {
	switch {
	case len(p.cfg.IncomeKeywords) > 0:
		return signByKeywords(amount, summary, p.cfg.IncomeKeywords)
	case len(p.cfg.ExpenseKeywords) > 0:
		for _, kw := range p.cfg.ExpenseKeywords {
			if strings.Contains(summary, kw) {
				return amount.Abs().Neg()
			}
		}
		return amount.Abs()
	default:
		return amount
	}
}

func (p *GenericParser) accountNumber(text string) string {
	if p.cfg.AccountPattern == "" {
		return ""
	}
	re, err := regexp.Compile(p.cfg.AccountPattern)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	grp := p.cfg.AccountGroup
	if grp == 0 {
		grp = 1
	}
	if grp >= len(m) {
		return ""
	}
	return strings.TrimSpace(m[grp])
}
