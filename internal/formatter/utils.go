package formatter

import (
	"fmt"
	"strings"
)

// formatNumber formats numbers with commas for readability
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return addCommas(fmt.Sprintf("%d", n))
}

// addCommas adds commas to number strings
func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// oneLine flattens and truncates text for single-line cells
func oneLine(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if limit > 3 && len(s) > limit {
		s = s[:limit-3] + "..."
	}
	return s
}
