// Package snapshot keeps a history of attendance summaries in Postgres.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/yildizm/AttendSum/internal/common"
)

// Table holds every snapshot
const Table = "attendsum.snapshots"

// DefaultListLimit is how many snapshots List returns without a limit
const DefaultListLimit = 20

// ErrNoDSN is returned when no database is configured
var ErrNoDSN = errors.New("no snapshot database configured (set snapshot.dsn or ATTENDSUM_DB_DSN)")

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS attendsum`,
	`CREATE TABLE IF NOT EXISTS attendsum.snapshots (
		id UUID PRIMARY KEY,
		taken_at TIMESTAMPTZ NOT NULL,
		district_code TEXT NOT NULL DEFAULT '',
		school_code TEXT NOT NULL DEFAULT '',
		grade_code TEXT NOT NULL DEFAULT '',
		total_students INT NOT NULL,
		below85_students INT NOT NULL,
		below85_percentage NUMERIC(6,2) NOT NULL,
		tier4_students INT NOT NULL,
		tier4_percentage NUMERIC(6,2) NOT NULL,
		summary JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_scope_idx
		ON attendsum.snapshots (district_code, school_code, grade_code, taken_at DESC)`,
}

// Snapshot is one stored summary
type Snapshot struct {
	ID                uuid.UUID                `json:"id"`
	TakenAt           time.Time                `json:"taken_at"`
	Criteria          common.Criteria          `json:"criteria"`
	TotalStudents     int                      `json:"total_students"`
	Below85Students   int                      `json:"below85_students"`
	Below85Percentage float64                  `json:"below85_percentage"`
	Tier4Students     int                      `json:"tier4_students"`
	Tier4Percentage   float64                  `json:"tier4_percentage"`
	Summary           common.SummaryStatistics `json:"summary"`
}

// Query narrows List. Nil Criteria lists every scope.
type Query struct {
	Criteria *common.Criteria
	Since    time.Time
	Limit    int
}

// Store reads and writes snapshots
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
	newID   func() uuid.UUID
}

// Open connects to dsn through the pgx driver and creates the schema
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrNoDSN
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening snapshot database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "connecting to snapshot database")
	}

	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database
func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:     time.Now,
		newID:   uuid.New,
	}
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the snapshot table if needed
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "creating snapshot schema")
		}
	}
	return nil
}

// Save stores the summary of analysis for criteria
func (s *Store) Save(ctx context.Context, criteria common.Criteria, analysis *common.Analysis) (*Snapshot, error) {
	if analysis == nil {
		return nil, errors.New("no analysis to snapshot")
	}

	snap := s.build(criteria, analysis.SummaryStatistics)
	query, args, err := s.insertQuery(snap)
	if err != nil {
		return nil, errors.Wrap(err, "building snapshot insert")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, errors.Wrap(err, "inserting snapshot")
	}
	return snap, nil
}

// List returns snapshots newest first
func (s *Store) List(ctx context.Context, q Query) ([]Snapshot, error) {
	query, args, err := s.listQuery(q)
	if err != nil {
		return nil, errors.Wrap(err, "building snapshot query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying snapshots")
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			summary []byte
		)
		if err := rows.Scan(
			&snap.ID,
			&snap.TakenAt,
			&snap.Criteria.DistrictCode,
			&snap.Criteria.SchoolCode,
			&snap.Criteria.GradeCode,
			&snap.TotalStudents,
			&snap.Below85Students,
			&snap.Below85Percentage,
			&snap.Tier4Students,
			&snap.Tier4Percentage,
			&summary,
		); err != nil {
			return nil, errors.Wrap(err, "scanning snapshot")
		}
		if err := json.Unmarshal(summary, &snap.Summary); err != nil {
			return nil, errors.Wrapf(err, "decoding snapshot %s", snap.ID)
		}
		out = append(out, snap)
	}
	return out, errors.Wrap(rows.Err(), "iterating snapshots")
}

func (s *Store) build(criteria common.Criteria, stats common.SummaryStatistics) *Snapshot {
	return &Snapshot{
		ID:                s.newID(),
		TakenAt:           s.now().UTC(),
		Criteria:          criteria,
		TotalStudents:     stats.TotalStudents,
		Below85Students:   stats.Below85Students,
		Below85Percentage: stats.Below85Percentage,
		Tier4Students:     stats.Tier4Students,
		Tier4Percentage:   stats.Tier4Percentage,
		Summary:           stats,
	}
}

func (s *Store) insertQuery(snap *Snapshot) (string, []interface{}, error) {
	summary, err := json.Marshal(snap.Summary)
	if err != nil {
		return "", nil, err
	}
	return s.builder.Insert(Table).
		Columns(
			"id", "taken_at", "district_code", "school_code", "grade_code",
			"total_students", "below85_students", "below85_percentage",
			"tier4_students", "tier4_percentage", "summary",
		).
		Values(
			snap.ID, snap.TakenAt, snap.Criteria.DistrictCode, snap.Criteria.SchoolCode, snap.Criteria.GradeCode,
			snap.TotalStudents, snap.Below85Students, snap.Below85Percentage,
			snap.Tier4Students, snap.Tier4Percentage, summary,
		).
		ToSql()
}

func (s *Store) listQuery(q Query) (string, []interface{}, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	sel := s.builder.Select(
		"id", "taken_at", "district_code", "school_code", "grade_code",
		"total_students", "below85_students", "below85_percentage",
		"tier4_students", "tier4_percentage", "summary",
	).From(Table)

	if q.Criteria != nil {
		sel = sel.Where(sq.Eq{
			"district_code": q.Criteria.DistrictCode,
			"school_code":   q.Criteria.SchoolCode,
			"grade_code":    q.Criteria.GradeCode,
		})
	}
	if !q.Since.IsZero() {
		sel = sel.Where(sq.GtOrEq{"taken_at": q.Since})
	}

	return sel.OrderBy("taken_at DESC").Limit(uint64(limit)).ToSql()
}
