package common

import (
	"encoding/json"
	"testing"
)

func TestTextItemUnmarshal(t *testing.T) {
	payload := `{
		"summaryStatistics": {"totalStudents": 10, "tier1Students": 4},
		"keyInsights": ["plain insight", {"text": "text field"}, {"insight": "insight field"}, {"text": "", "insight": "Grade 5 absence up 12%"}],
		"recommendations": [{"recommendation": "rec field"}, {}, {"text": "", "insight": "", "recommendation": "Call families"}, {"text": ""}]
	}`

	var a Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	wantInsights := []TextItem{
		{Kind: ItemPlain, Value: "plain insight"},
		{Kind: ItemText, Value: "text field"},
		{Kind: ItemInsight, Value: "insight field"},
		{Kind: ItemInsight, Value: "Grade 5 absence up 12%"},
	}
	if len(a.KeyInsights) != len(wantInsights) {
		t.Fatalf("insights = %d, want %d", len(a.KeyInsights), len(wantInsights))
	}
	for i, want := range wantInsights {
		if a.KeyInsights[i] != want {
			t.Errorf("insight %d = %+v, want %+v", i, a.KeyInsights[i], want)
		}
	}

	if a.Recommendations[0] != (TextItem{Kind: ItemRecommendation, Value: "rec field"}) {
		t.Errorf("recommendation = %+v", a.Recommendations[0])
	}
	if a.Recommendations[1].Value != "" {
		t.Errorf("empty object should carry no text, got %q", a.Recommendations[1].Value)
	}
	if a.Recommendations[2] != (TextItem{Kind: ItemRecommendation, Value: "Call families"}) {
		t.Errorf("empty text and insight should fall through, got %+v", a.Recommendations[2])
	}
	if a.Recommendations[3] != (TextItem{Kind: ItemText}) {
		t.Errorf("only an empty text should stay an empty text item, got %+v", a.Recommendations[3])
	}
	if a.SummaryStatistics.TierStudents(1) != 4 {
		t.Errorf("TierStudents(1) = %d", a.SummaryStatistics.TierStudents(1))
	}
}

func TestTextItemRoundTripKeepsShape(t *testing.T) {
	item := TextItem{Kind: ItemInsight, Value: "x"}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"insight":"x"}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestGradeRiskAcceptsNumericGrade(t *testing.T) {
	var rows []GradeRisk
	err := json.Unmarshal([]byte(`[{"grade": 3, "risk_percentage": 12.5, "student_count": 40}, {"grade": "K"}]`), &rows)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if rows[0].Grade != "3" || rows[1].Grade != "K" {
		t.Errorf("grades = %q, %q", rows[0].Grade, rows[1].Grade)
	}
}

func TestBuildCriteria(t *testing.T) {
	tests := []struct {
		name                    string
		district, school, grade string
		want                    Criteria
	}{
		{"prefixed district", "D12", "12-0034", "5", Criteria{DistrictCode: "12", SchoolCode: "0034", GradeCode: "5"}},
		{"plain district", "North", "", "", Criteria{DistrictCode: "North"}},
		{"non numeric prefix kept", "DX", "", "", Criteria{DistrictCode: "DX"}},
		{"empty", "", "", "", Criteria{}},
		{"trailing dash keeps school", "12", "0034-", "", Criteria{DistrictCode: "12", SchoolCode: "0034-"}},
		{"bare school code", "12", "0034", "", Criteria{DistrictCode: "12", SchoolCode: "0034"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCriteria(tt.district, tt.school, tt.grade)
			if got != tt.want {
				t.Errorf("BuildCriteria() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if !(Criteria{}).IsGlobal() {
		t.Error("empty criteria should be global")
	}
}

func TestParseReportType(t *testing.T) {
	if r, ok := ParseReportType("Below_85"); !ok || r != ReportBelow85 {
		t.Errorf("ParseReportType(Below_85) = %q, %v", r, ok)
	}
	if _, ok := ParseReportType("weekly"); ok {
		t.Error("weekly should not be a report type")
	}
}
