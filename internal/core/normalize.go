package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// rocYearOffset converts a Republic-of-China calendar year to the Gregorian
// year. Bank statements and transfer screenshots from local banks routinely
// carry ROC dates such as 112/01/05.
const rocYearOffset = 1911

var nonDigitRe = regexp.MustCompile(`[^\d]+`)

// NormalizeDate brings a free-form date string to canonical YYYY/MM/DD form.
// Digit groups may be separated by any non-digit run (slash, dash, dot).
// Years below 1911 are treated as ROC years and shifted by 1911. Inputs with
// fewer than three digit groups are returned unchanged so malformed rows
// surface upstream instead of failing hard; empty input yields empty output.
func NormalizeDate(s string) string {
	if s == "" {
		return ""
	}
	groups := splitDigitGroups(s)
	if len(groups) < 3 {
		return s
	}

	year, err := strconv.Atoi(groups[0])
	if err != nil {
		return s
	}
	if year < rocYearOffset {
		year += rocYearOffset
	}
	return fmt.Sprintf("%04d/%s/%s", year, padTwo(groups[1]), padTwo(groups[2]))
}

// NormalizeTime brings a time string to HH:MM:SS. Empty input yields
// 00:00:00 and a bare HH:MM gains a zero seconds field.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "00:00:00"
	}
	parts := strings.Split(s, ":")
	for len(parts) < 3 {
		parts = append(parts, "00")
	}
	for i, p := range parts[:3] {
		parts[i] = padTwo(p)
	}
	return strings.Join(parts[:3], ":")
}

func splitDigitGroups(s string) []string {
	var groups []string
	for _, g := range nonDigitRe.Split(s, -1) {
		if g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

func padTwo(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
