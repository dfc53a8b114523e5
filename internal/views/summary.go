package views

import "github.com/yildizm/AttendSum/internal/common"

// Card is one headline figure on the summary strip
type Card struct {
	Title      string  `json:"title"`
	Students   int     `json:"students"`
	Percentage float64 `json:"percentage"`
	EmojiKey   string  `json:"-"`
}

var tierTitles = [4]string{
	"Tier 1 (>=95%)",
	"Tier 2 (90-95%)",
	"Tier 3 (80-90%)",
	"Tier 4 (<80%)",
}

// TierTitle is the display title for tier 1..4
func TierTitle(tier int) string {
	if tier < 1 || tier > 4 {
		return ""
	}
	return tierTitles[tier-1]
}

// SummaryCards builds the total, below-85 and per-tier cards
func SummaryCards(s common.SummaryStatistics) []Card {
	cards := []Card{
		{Title: "Total Students", Students: s.TotalStudents, Percentage: 100, EmojiKey: "students"},
		{Title: "Below 85%", Students: s.Below85Students, Percentage: s.Below85Percentage, EmojiKey: "warning"},
	}
	for tier := 1; tier <= 4; tier++ {
		cards = append(cards, Card{
			Title:      TierTitle(tier),
			Students:   s.TierStudents(tier),
			Percentage: s.TierPercentage(tier),
			EmojiKey:   tierEmoji(tier),
		})
	}
	return cards
}

func tierEmoji(tier int) string {
	switch tier {
	case 1:
		return "low"
	case 2:
		return "medium"
	case 3:
		return "high"
	default:
		return "critical"
	}
}
