package emoji

// EmojiMap holds emoji and fallback mappings
var emojiMap = map[string][2]string{
	// [emoji, fallback]
	"error":      {"❌", "[ERR]"},
	"warning":    {"⚠️", "[WRN]"},
	"info":       {"ℹ️", "[INF]"},
	"success":    {"✅", "[OK]"},
	"statistics": {"📊", "[STATS]"},
	"students":   {"🎓", "[STU]"},
	"district":   {"🏛️", "[DST]"},
	"school":     {"🏫", "[SCH]"},
	"grade":      {"📚", "[GRD]"},
	"report":     {"📄", "[RPT]"},
	"chart":      {"📈", "[CHT]"},
	"lock":       {"🔒", "[AUTH]"},
	"key":        {"🔑", "[KEY]"},
	"rocket":     {"🚀", "[>>]"},
	"help":       {"❓", "[?]"},
	"target":     {"🎯", "[>]"},
	"brain":      {"🧠", "[AI]"},
	"door":       {"🚪", "[EXIT]"},
	"number":     {"🔢", "[#]"},
	"bell":       {"🔔", "[ALR]"},
	"database":   {"🗄️", "[DB]"},

	// Risk levels
	"critical": {"🔴", "[CRIT]"},
	"high":     {"🟠", "[HIGH]"},
	"medium":   {"🟡", "[MED]"},
	"low":      {"🟢", "[LOW]"},

	// Insight categories
	"predictive": {"🔮", "[PRED]"},
	"pattern":    {"🔍", "[PAT]"},
	"behavioral": {"🧭", "[BEH]"},
	"tier":       {"🪜", "[TIER]"},
	"insight":    {"💡", "[INS]"},

	// Recommendation priorities
	"urgent":          {"🚨", "[URG]"},
	"recommendations": {"📋", "[REC]"},
}

var emojiDisabled bool

// SetEmojiDisabled sets the global emoji disabled state
func SetEmojiDisabled(disabled bool) {
	emojiDisabled = disabled
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled
}

// GetEmoji returns emoji or fallback based on no-emoji setting
func GetEmoji(key string) string {
	if mapping, exists := emojiMap[key]; exists {
		if emojiDisabled {
			return mapping[1]
		}
		return mapping[0]
	}
	return "[?]"
}
