package views

import (
	"strings"

	"github.com/yildizm/AttendSum/internal/common"
)

// Priority of an insight or recommendation
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ScoredItem is display text with heuristic scores
type ScoredItem struct {
	Text       string   `json:"text"`
	Confidence int      `json:"confidence"`
	Priority   Priority `json:"priority,omitempty"`
}

// InsightCategory groups insights by theme
type InsightCategory struct {
	Name     string       `json:"category"`
	EmojiKey string       `json:"-"`
	Items    []ScoredItem `json:"items"`
}

// RecommendationGroup groups recommendations by urgency
type RecommendationGroup struct {
	Priority Priority     `json:"priority"`
	EmojiKey string       `json:"-"`
	Items    []ScoredItem `json:"items"`
}

// Confidence scores how well grounded a sentence looks, 60..95
func Confidence(text string) int {
	score := 70
	if strings.Contains(text, "%") {
		score += 10
	}
	if strings.Contains(text, "students") {
		score += 5
	}
	if strings.Contains(text, "data") || strings.Contains(text, "analysis") {
		score += 8
	}
	if len(text) > 100 {
		score += 5
	}
	if strings.Contains(text, "recommend") || strings.Contains(text, "suggest") {
		score += 7
	}
	return min(95, max(60, score))
}

// InsightPriority ranks an insight by its wording
func InsightPriority(text string) Priority {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "critical", "urgent", "risk"):
		return PriorityHigh
	case containsAny(lower, "consider", "improve", "focus"):
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// RecommendationPriority ranks a recommendation by its wording
func RecommendationPriority(text string) Priority {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "urgent", "critical", "immediate", "priority"):
		return PriorityHigh
	case containsAny(lower, "consider", "improve", "enhance"):
		return PriorityMedium
	default:
		return PriorityLow
	}
}

var insightCategories = []struct {
	name     string
	emojiKey string
	keywords []string
}{
	{"Predictive Analytics", "predictive", []string{"predict", "forecast"}},
	{"Pattern Recognition", "pattern", []string{"pattern", "trend", "correlate"}},
	{"Behavioral Analytics", "behavioral", []string{"behavior", "engagement"}},
	{"Tier Analysis", "tier", []string{"tier", "intervention"}},
	{"General Insights", "insight", nil},
}

// CategorizeInsights sorts insights into themed groups in a fixed order.
// Each insight lands in the first matching group; empty groups are dropped.
func CategorizeInsights(items []common.TextItem) []InsightCategory {
	groups := make([]InsightCategory, len(insightCategories))
	for i, c := range insightCategories {
		groups[i] = InsightCategory{Name: c.name, EmojiKey: c.emojiKey}
	}

	for _, it := range items {
		text := TextOf(it)
		lower := strings.ToLower(text)
		scored := ScoredItem{Text: text, Confidence: Confidence(text), Priority: InsightPriority(text)}

		idx := len(insightCategories) - 1
		for i, c := range insightCategories {
			if containsAny(lower, c.keywords...) {
				idx = i
				break
			}
		}
		groups[idx].Items = append(groups[idx].Items, scored)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Items) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// CategorizeRecommendations groups recommendations HIGH, MEDIUM, LOW,
// dropping empty groups
func CategorizeRecommendations(items []common.TextItem) []RecommendationGroup {
	groups := []RecommendationGroup{
		{Priority: PriorityHigh, EmojiKey: "urgent"},
		{Priority: PriorityMedium, EmojiKey: "medium"},
		{Priority: PriorityLow, EmojiKey: "low"},
	}
	index := map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

	for _, it := range items {
		text := TextOf(it)
		p := RecommendationPriority(text)
		g := &groups[index[p]]
		g.Items = append(g.Items, ScoredItem{Text: text, Confidence: Confidence(text)})
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Items) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
