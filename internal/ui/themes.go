package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/AttendSum/internal/views"
)

// Theme is a color palette for the dashboard
type Theme struct {
	Name string

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor

	Border   lipgloss.AdaptiveColor
	Muted    lipgloss.AdaptiveColor
	Selected lipgloss.AdaptiveColor

	// One color per risk level, low to critical
	Risk [4]lipgloss.AdaptiveColor
}

func adaptive(c [2]string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: c[0], Dark: c[1]}
}

// buildTheme takes light/dark pairs in the order of the Theme fields
func buildTheme(name string, primary, secondary, accent, success, warning, errorColor, info, border, muted, selected [2]string, risk [4][2]string) Theme {
	t := Theme{
		Name:      name,
		Primary:   adaptive(primary),
		Secondary: adaptive(secondary),
		Accent:    adaptive(accent),
		Success:   adaptive(success),
		Warning:   adaptive(warning),
		Error:     adaptive(errorColor),
		Info:      adaptive(info),
		Border:    adaptive(border),
		Muted:     adaptive(muted),
		Selected:  adaptive(selected),
	}
	for i, c := range risk {
		t.Risk[i] = adaptive(c)
	}
	return t
}

var (
	DefaultTheme = buildTheme("default",
		[2]string{"#1E40AF", "#3B82F6"}, [2]string{"#6B7280", "#9CA3AF"}, [2]string{"#7C3AED", "#A855F7"},
		[2]string{"#059669", "#10B981"}, [2]string{"#D97706", "#F59E0B"}, [2]string{"#DC2626", "#EF4444"},
		[2]string{"#0891B2", "#06B6D4"}, [2]string{"#D1D5DB", "#374151"}, [2]string{"#6B7280", "#9CA3AF"},
		[2]string{"#DBEAFE", "#1E3A8A"},
		[4][2]string{{"#059669", "#10B981"}, {"#CA8A04", "#FACC15"}, {"#EA580C", "#FB923C"}, {"#DC2626", "#EF4444"}})

	HighContrastTheme = buildTheme("high-contrast",
		[2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"}, [2]string{"#000080", "#8080FF"},
		[2]string{"#006600", "#00FF00"}, [2]string{"#CC6600", "#FFAA00"}, [2]string{"#CC0000", "#FF4444"},
		[2]string{"#0066CC", "#4499FF"}, [2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"},
		[2]string{"#CCCCCC", "#333333"},
		[4][2]string{{"#006600", "#00FF00"}, {"#996600", "#FFFF00"}, {"#CC6600", "#FFAA00"}, {"#CC0000", "#FF4444"}})

	MinimalTheme = buildTheme("minimal",
		[2]string{"#2D3748", "#E2E8F0"}, [2]string{"#718096", "#A0AEC0"}, [2]string{"#4A5568", "#CBD5E0"},
		[2]string{"#2F855A", "#68D391"}, [2]string{"#C05621", "#F6AD55"}, [2]string{"#C53030", "#FC8181"},
		[2]string{"#2B6CB0", "#63B3ED"}, [2]string{"#E2E8F0", "#2D3748"}, [2]string{"#A0AEC0", "#718096"},
		[2]string{"#EDF2F7", "#2D3748"},
		[4][2]string{{"#2F855A", "#68D391"}, {"#B7791F", "#F6E05E"}, {"#C05621", "#F6AD55"}, {"#C53030", "#FC8181"}})
)

var currentTheme = DefaultTheme

// GetTheme returns the active theme
func GetTheme() Theme {
	return currentTheme
}

// SetThemeByName switches the active theme, reporting whether name exists
func SetThemeByName(name string) bool {
	switch name {
	case "default":
		currentTheme = DefaultTheme
	case "high-contrast":
		currentTheme = HighContrastTheme
	case "minimal":
		currentTheme = MinimalTheme
	default:
		return false
	}
	return true
}

// GetAvailableThemes returns the theme names SetThemeByName accepts
func GetAvailableThemes() []string {
	return []string{"default", "high-contrast", "minimal"}
}

// IsColorDisabled checks if colors should be disabled
func IsColorDisabled() bool {
	return os.Getenv("NO_COLOR") != ""
}

// Styles contains the styled components of the dashboard
type Styles struct {
	Theme Theme

	Title     lipgloss.Style
	Header    lipgloss.Style
	Subheader lipgloss.Style
	Body      lipgloss.Style
	Muted     lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	// Banner frames an error message
	Banner   lipgloss.Style
	Card     lipgloss.Style
	Panel    lipgloss.Style
	Focused  lipgloss.Style
	Selected lipgloss.Style
	Emphasis lipgloss.Style

	risk [4]lipgloss.Style
}

// GetStyles builds the styles for the active theme
func GetStyles() *Styles {
	theme := GetTheme()

	s := &Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1),

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subheader: lipgloss.NewStyle().
			Foreground(theme.Secondary).
			Bold(true),

		Body:  lipgloss.NewStyle(),
		Muted: lipgloss.NewStyle().Foreground(theme.Muted),

		Success: lipgloss.NewStyle().Foreground(theme.Success).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(theme.Error).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(theme.Info),

		Banner: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Error).
			Foreground(theme.Error).
			Padding(0, 1),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1).
			Width(22),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Focused: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 1),

		Selected: lipgloss.NewStyle().
			Background(theme.Selected).
			Foreground(theme.Primary).
			Bold(true),

		Emphasis: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),
	}
	for i, c := range theme.Risk {
		s.risk[i] = lipgloss.NewStyle().Foreground(c).Bold(i >= int(views.RiskHigh))
	}
	return s
}

// Risk returns the style for a risk level
func (s *Styles) Risk(level views.RiskLevel) lipgloss.Style {
	if level < views.RiskLow || level > views.RiskCritical {
		level = views.RiskLow
	}
	return s.risk[level]
}

// Render applies style unless colors are disabled
func (s *Styles) Render(style lipgloss.Style, text string) string {
	if IsColorDisabled() {
		return text
	}
	return style.Render(text)
}
