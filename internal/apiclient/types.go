package apiclient

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/yildizm/AttendSum/internal/common"
)

// Default endpoints and timeouts
const (
	DefaultBaseURL       = "http://localhost:8000/api/alerts"
	DefaultAuthURL       = "http://localhost:8000/api/auth"
	DefaultTimeout       = 30 * time.Second
	DefaultReportTimeout = 300 * time.Second
)

// Credentials are the login form fields
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// User is the signed-in account
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UnmarshalJSON accepts numeric or string ids
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Email string          `json:"email"`
		Name  string          `json:"name"`
		Role  string          `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Email, u.Name, u.Role = raw.Email, raw.Name, raw.Role

	id := bytes.TrimSpace(raw.ID)
	var s string
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		u.ID = ""
	case json.Unmarshal(id, &s) == nil:
		u.ID = s
	default:
		u.ID = string(id)
	}
	return nil
}

// LoginResponse is returned by the login endpoint
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// GradeRiskReport is the grade breakdown for one school
type GradeRiskReport struct {
	Grades        []common.GradeRisk `json:"grades"`
	TotalStudents int                `json:"total_students"`
	AverageRisk   float64            `json:"average_risk"`
}

// SchoolRiskReport is the school breakdown for one district
type SchoolRiskReport struct {
	Schools          []common.SchoolRisk `json:"schools"`
	TotalStudents    int                 `json:"total_students"`
	AverageRisk      float64             `json:"average_risk"`
	AverageRiskLevel string              `json:"average_risk_level"`
	RiskDistribution map[string]int      `json:"risk_distribution,omitempty"`
}

type reportRequest struct {
	common.Criteria
	ReportType common.ReportType `json:"reportType"`
}
