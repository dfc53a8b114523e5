package views

import (
	"regexp"
	"strings"

	"github.com/yildizm/AttendSum/internal/common"
)

// NoContent is shown for items with no text
const NoContent = "No content available"

var (
	percentRe   = regexp.MustCompile(`\d+(?:\.\d+)?(?:-\d+(?:\.\d+)?)?%`)
	labelRe     = regexp.MustCompile(`^([^:]+):`)
	leadWordsRe = regexp.MustCompile(`^[\w.%-]+(?:\s+[\w.%-]+){0,4}`)
)

// Wrapper decorates an emphasized span
type Wrapper func(string) string

// Markdown emphasis
func Bold(s string) string { return "**" + s + "**" }

// TextOf extracts the display text of an item
func TextOf(item common.TextItem) string {
	if strings.TrimSpace(item.Value) == "" {
		return NoContent
	}
	return item.Value
}

// Texts extracts display text from every item
func Texts(items []common.TextItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = TextOf(it)
	}
	return out
}

// Highlight wraps every percentage ("12%", "4.5%", "10-15%") with wrap
func Highlight(text string, wrap Wrapper) string {
	if wrap == nil {
		wrap = Bold
	}
	return percentRe.ReplaceAllStringFunc(text, wrap)
}

// Percentages returns the percentage substrings found in text
func Percentages(text string) []string {
	return percentRe.FindAllString(text, -1)
}

// HighlightLead emphasizes the lead of a sentence, the label before the
// first colon or else up to its first five words. Percentages are
// highlighted everywhere, the lead included.
func HighlightLead(text string, wrap Wrapper) string {
	if wrap == nil {
		wrap = Bold
	}

	if m := labelRe.FindStringSubmatchIndex(text); m != nil {
		return wrap(Highlight(text[m[2]:m[3]], wrap)) + ":" + Highlight(text[m[1]:], wrap)
	}
	if m := leadWordsRe.FindStringIndex(text); m != nil {
		return wrap(Highlight(text[:m[1]], wrap)) + Highlight(text[m[1]:], wrap)
	}
	return Highlight(text, wrap)
}
