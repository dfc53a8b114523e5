package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/AttendSum/internal/common"
)

func testStore() *Store {
	s := New(nil)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }
	s.newID = func() uuid.UUID { return uuid.MustParse("6f1c1c7e-5f7a-4d7e-9a59-0c4f7d3b2a11") }
	return s
}

func TestOpenWithoutDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		_, err := Open(context.Background(), dsn)
		if !errors.Is(err, ErrNoDSN) {
			t.Errorf("Open(%q) error = %v, want ErrNoDSN", dsn, err)
		}
	}
}

func TestSaveRequiresAnalysis(t *testing.T) {
	s := testStore()
	if _, err := s.Save(context.Background(), common.Criteria{}, nil); err == nil {
		t.Fatal("expected error for nil analysis")
	}
}

func TestInsertQuery(t *testing.T) {
	s := testStore()
	stats := common.SummaryStatistics{
		TotalStudents:     1200,
		Below85Students:   300,
		Below85Percentage: 25,
		Tier4Students:     60,
		Tier4Percentage:   5,
	}
	snap := s.build(common.Criteria{DistrictCode: "12", SchoolCode: "0034"}, stats)

	if snap.ID.String() != "6f1c1c7e-5f7a-4d7e-9a59-0c4f7d3b2a11" {
		t.Errorf("ID = %s", snap.ID)
	}
	if !snap.TakenAt.Equal(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("TakenAt = %s", snap.TakenAt)
	}

	query, args, err := s.insertQuery(snap)
	if err != nil {
		t.Fatalf("insertQuery() error = %v", err)
	}
	if !strings.HasPrefix(query, "INSERT INTO "+Table+" (id,taken_at,district_code") {
		t.Errorf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)") {
		t.Errorf("expected dollar placeholders, got: %s", query)
	}
	if len(args) != 11 {
		t.Fatalf("got %d args, want 11", len(args))
	}
	if args[2] != "12" || args[3] != "0034" || args[4] != "" {
		t.Errorf("criteria args = %v %v %v", args[2], args[3], args[4])
	}
	if args[5] != 1200 || args[9] != 5.0 {
		t.Errorf("count args = %v %v", args[5], args[9])
	}

	var decoded common.SummaryStatistics
	if err := json.Unmarshal(args[10].([]byte), &decoded); err != nil {
		t.Fatalf("summary arg is not JSON: %v", err)
	}
	if decoded.Below85Students != 300 {
		t.Errorf("decoded Below85Students = %d", decoded.Below85Students)
	}
}

func TestListQuery(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    Query
		contains []string
		absent   []string
		args     int
	}{
		{
			name:     "everything",
			query:    Query{},
			contains: []string{"FROM " + Table, "ORDER BY taken_at DESC", "LIMIT 20"},
			absent:   []string{"WHERE"},
		},
		{
			name:     "scoped",
			query:    Query{Criteria: &common.Criteria{DistrictCode: "12"}, Limit: 5},
			contains: []string{"district_code = $1", "grade_code = $2", "school_code = $3", "LIMIT 5"},
			args:     3,
		},
		{
			name:     "since",
			query:    Query{Since: since},
			contains: []string{"WHERE taken_at >= $1"},
			args:     1,
		},
		{
			name:     "scoped since",
			query:    Query{Criteria: &common.Criteria{}, Since: since},
			contains: []string{"taken_at >= $4"},
			args:     4,
		},
	}

	s := testStore()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := s.listQuery(tt.query)
			if err != nil {
				t.Fatalf("listQuery() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(query, want) {
					t.Errorf("query %q missing %q", query, want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(query, unwanted) {
					t.Errorf("query %q should not contain %q", query, unwanted)
				}
			}
			if len(args) != tt.args {
				t.Errorf("got %d args, want %d", len(args), tt.args)
			}
		})
	}
}
