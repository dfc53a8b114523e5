package views

// RiskLevel buckets a risk percentage
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

// Lower bounds, inclusive
const (
	CriticalThreshold = 30.0
	HighThreshold     = 20.0
	MediumThreshold   = 10.0
)

// RiskLevelFor maps a percentage to its level
func RiskLevelFor(pct float64) RiskLevel {
	switch {
	case pct >= CriticalThreshold:
		return RiskCritical
	case pct >= HighThreshold:
		return RiskHigh
	case pct >= MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (r RiskLevel) String() string {
	switch r {
	case RiskCritical:
		return "Critical"
	case RiskHigh:
		return "High"
	case RiskMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// EmojiKey names the emoji used to decorate the level
func (r RiskLevel) EmojiKey() string {
	switch r {
	case RiskCritical:
		return "critical"
	case RiskHigh:
		return "high"
	case RiskMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParseRiskLevel accepts the labels the backend sends. Unknown labels are Low.
func ParseRiskLevel(s string) RiskLevel {
	switch s {
	case "Critical", "critical", "CRITICAL":
		return RiskCritical
	case "High", "high", "HIGH":
		return RiskHigh
	case "Medium", "medium", "MEDIUM":
		return RiskMedium
	default:
		return RiskLow
	}
}
