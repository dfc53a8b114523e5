// Package report stores downloaded attendance reports and inspects them.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yildizm/AttendSum/internal/common"
)

// Extension of every downloaded report
const Extension = ".xlsx"

// FileName is the name a report of kind downloaded at t is saved under
func FileName(kind common.ReportType, t time.Time) string {
	return fmt.Sprintf("attendance_%s_%s%s", kind, t.Format("2006-01-02"), Extension)
}

// Store saves reports into one directory
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a store writing into dir
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the target directory
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under FileName and returns the full path. A report of
// the same kind saved on the same day is replaced.
func (s *Store) Save(kind common.ReportType, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty %s report", kind)
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName(kind, s.now()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
