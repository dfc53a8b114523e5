package common

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Analysis is the aggregated attendance payload for one set of filters.
// It is replaced wholesale on every successful fetch.
type Analysis struct {
	SummaryStatistics   SummaryStatistics    `json:"summaryStatistics"`
	KeyInsights         []TextItem           `json:"keyInsights"`
	Recommendations     []TextItem           `json:"recommendations"`
	AlertsNotifications *AlertsNotifications `json:"alertsNotifications,omitempty"`
}

// SummaryStatistics holds student counts per attendance tier
type SummaryStatistics struct {
	TotalStudents     int      `json:"totalStudents"`
	Below85Students   int      `json:"below85Students"`
	Below85Percentage float64  `json:"below85Percentage"`
	Tier1Students     int      `json:"tier1Students"`
	Tier1Percentage   float64  `json:"tier1Percentage"`
	Tier2Students     int      `json:"tier2Students"`
	Tier2Percentage   float64  `json:"tier2Percentage"`
	Tier3Students     int      `json:"tier3Students"`
	Tier3Percentage   float64  `json:"tier3Percentage"`
	Tier4Students     int      `json:"tier4Students"`
	Tier4Percentage   float64  `json:"tier4Percentage"`
	SchoolPrediction  *float64 `json:"schoolPrediction,omitempty"`
	GradePrediction   *float64 `json:"gradePrediction,omitempty"`
}

// TierStudents returns the student count for tier 1..4, zero otherwise
func (s SummaryStatistics) TierStudents(tier int) int {
	switch tier {
	case 1:
		return s.Tier1Students
	case 2:
		return s.Tier2Students
	case 3:
		return s.Tier3Students
	case 4:
		return s.Tier4Students
	}
	return 0
}

// TierPercentage returns the share of students in tier 1..4
func (s SummaryStatistics) TierPercentage(tier int) float64 {
	switch tier {
	case 1:
		return s.Tier1Percentage
	case 2:
		return s.Tier2Percentage
	case 3:
		return s.Tier3Percentage
	case 4:
		return s.Tier4Percentage
	}
	return 0
}

// AlertsNotifications counts students under 60% attendance
type AlertsNotifications struct {
	TotalBelow60 int             `json:"totalBelow60"`
	ByDistrict   []DistrictCount `json:"byDistrict"`
	BySchool     []SchoolCount   `json:"bySchool"`
	ByGrade      []GradeCount    `json:"byGrade"`
}

type DistrictCount struct {
	District string `json:"district"`
	Count    int    `json:"count"`
}

type SchoolCount struct {
	School string `json:"school"`
	Count  int    `json:"count"`
}

type GradeCount struct {
	Grade          string   `json:"grade"`
	Count          int      `json:"count"`
	RiskPercentage *float64 `json:"riskPercentage,omitempty"`
}

// UnmarshalJSON accepts numeric grade labels
func (g *GradeCount) UnmarshalJSON(data []byte) error {
	var raw struct {
		Grade          json.RawMessage `json:"grade"`
		Count          int             `json:"count"`
		RiskPercentage *float64        `json:"riskPercentage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Grade = flexibleString(raw.Grade)
	g.Count = raw.Count
	g.RiskPercentage = raw.RiskPercentage
	return nil
}

// ItemKind discriminates the shapes a text item arrives in
type ItemKind string

const (
	ItemPlain          ItemKind = "plain"
	ItemText           ItemKind = "text"
	ItemInsight        ItemKind = "insight"
	ItemRecommendation ItemKind = "recommendation"
)

// TextItem is an insight or recommendation. The backend sends either a bare
// string or an object carrying the text under "text", "insight" or
// "recommendation"; Kind records which.
type TextItem struct {
	Kind  ItemKind
	Value string
}

// PlainItem builds a bare string item
func PlainItem(s string) TextItem {
	return TextItem{Kind: ItemPlain, Value: s}
}

// UnmarshalJSON decodes any of the accepted shapes
func (t *TextItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = TextItem{Kind: ItemPlain}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = PlainItem(s)
		return nil
	}

	var obj struct {
		Text           *string `json:"text"`
		Insight        *string `json:"insight"`
		Recommendation *string `json:"recommendation"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("text item: %w", err)
	}

	// An empty field falls through to the next one
	switch {
	case nonEmpty(obj.Text):
		*t = TextItem{Kind: ItemText, Value: *obj.Text}
	case nonEmpty(obj.Insight):
		*t = TextItem{Kind: ItemInsight, Value: *obj.Insight}
	case nonEmpty(obj.Recommendation):
		*t = TextItem{Kind: ItemRecommendation, Value: *obj.Recommendation}
	default:
		*t = TextItem{Kind: ItemText}
	}
	return nil
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// MarshalJSON writes the item back in the shape it arrived in
func (t TextItem) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case ItemText:
		return json.Marshal(map[string]string{"text": t.Value})
	case ItemInsight:
		return json.Marshal(map[string]string{"insight": t.Value})
	case ItemRecommendation:
		return json.Marshal(map[string]string{"recommendation": t.Value})
	default:
		return json.Marshal(t.Value)
	}
}

func flexibleString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
