package cli

import (
	"strings"

	"github.com/yildizm/AttendSum/internal/emoji"
	"github.com/yildizm/AttendSum/internal/views"
)

// GetEmoji is a wrapper for the shared emoji package
func GetEmoji(key string) string {
	return emoji.GetEmoji(key)
}

// GetRiskEmoji returns the marker for a risk level
func GetRiskEmoji(level views.RiskLevel) string {
	return GetEmoji(level.EmojiKey())
}

// CreateRiskBar draws pct (0..100) as a 10 cell bar
func CreateRiskBar(pct float64) string {
	filled := int(pct / 10)
	filled = max(0, min(10, filled))

	full, empty := "█", "░"
	if isEmojiDisabled() {
		full, empty = "#", "-"
	}
	bar := strings.Repeat(full, filled) + strings.Repeat(empty, 10-filled)
	if isEmojiDisabled() {
		return "[" + bar + "]"
	}
	return bar
}
