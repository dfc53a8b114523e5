// Package apiclient talks to the attendance analytics backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/logger"
)

// Authorizer attaches credentials to requests and reacts to 401s
type Authorizer interface {
	Authorize(req *http.Request)
	HandleUnauthorized(path string) bool
}

// Config holds the client settings
type Config struct {
	BaseURL       string        `validate:"required,url"`
	AuthURL       string        `validate:"required,url"`
	Timeout       time.Duration `validate:"gt=0"`
	ReportTimeout time.Duration `validate:"gt=0"`
}

// DefaultConfig points at a backend on localhost
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		AuthURL:       DefaultAuthURL,
		Timeout:       DefaultTimeout,
		ReportTimeout: DefaultReportTimeout,
	}
}

var validate = validator.New()

// Client is the backend API client
type Client struct {
	baseURL      *url.URL
	authURL      *url.URL
	client       *http.Client
	reportClient *http.Client
	auth         Authorizer
	log          *logger.Logger
}

// New creates a client. auth may be nil for anonymous use.
func New(cfg Config, auth Authorizer, log *logger.Logger) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid api config: %w", err)
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	authURL, err := url.Parse(strings.TrimRight(cfg.AuthURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid auth URL: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Client{
		baseURL:      baseURL,
		authURL:      authURL,
		client:       &http.Client{Timeout: cfg.Timeout},
		reportClient: &http.Client{Timeout: cfg.ReportTimeout},
		auth:         auth,
		log:          log,
	}, nil
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	if err := validate.Struct(creds); err != nil {
		return nil, newError(ErrKindRequest, "login", "Request error: email and password are required", err)
	}

	var out LoginResponse
	if err := c.doJSON(ctx, c.client, http.MethodPost, c.authURL.JoinPath("login"), creds, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, newError(ErrKindDecode, "login", "Login response did not include a token", nil)
	}
	return &out, nil
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.doJSON(ctx, c.client, http.MethodGet, c.authURL.JoinPath("me"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FilterOptions returns every district, school and grade option
func (c *Client) FilterOptions(ctx context.Context) (*common.FilterOptions, error) {
	var out common.FilterOptions
	if err := c.doJSON(ctx, c.client, http.MethodGet, c.baseURL.JoinPath("filter-options"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SchoolsByDistrict lists the schools of district, or every school when
// district is empty
func (c *Client) SchoolsByDistrict(ctx context.Context, district string) ([]common.Option, error) {
	if district == "" {
		district = "-1"
	}
	var out []common.Option
	u := c.baseURL.JoinPath("schools", "district", district)
	if err := c.doJSON(ctx, c.client, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GradesBySchool lists the grades taught at school
func (c *Client) GradesBySchool(ctx context.Context, district, school string) ([]common.Option, error) {
	var out []common.Option
	u := c.baseURL.JoinPath("grades", "district", district, "school", school)
	if err := c.doJSON(ctx, c.client, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PredictionInsights fetches the analysis for criteria
func (c *Client) PredictionInsights(ctx context.Context, criteria common.Criteria) (*common.Analysis, error) {
	var out common.Analysis
	if err := c.doJSON(ctx, c.client, http.MethodPost, c.baseURL.JoinPath("prediction-insights"), criteria, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GradeRisks fetches the grade breakdown for a school
func (c *Client) GradeRisks(ctx context.Context, district, school string) (*GradeRiskReport, error) {
	var out GradeRiskReport
	u := c.baseURL.JoinPath("grade-risks", "district", district, "school", school)
	if err := c.doJSON(ctx, c.client, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SchoolRisks fetches the school breakdown for a district
func (c *Client) SchoolRisks(ctx context.Context, district string) (*SchoolRiskReport, error) {
	var out SchoolRiskReport
	u := c.baseURL.JoinPath("school-risks", "district", district)
	if err := c.doJSON(ctx, c.client, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadReport fetches a binary report. It uses the longer report timeout.
func (c *Client) DownloadReport(ctx context.Context, kind common.ReportType, criteria common.Criteria) ([]byte, error) {
	u := c.baseURL.JoinPath("download", "report", string(kind))
	body := reportRequest{Criteria: criteria, ReportType: kind}

	resp, err := c.do(ctx, c.reportClient, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrKindNetwork, u.Path, MsgNoResponse, err)
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, hc *http.Client, method string, u *url.URL, in, out interface{}) error {
	resp, err := c.do(ctx, hc, method, u, in)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(ErrKindDecode, u.Path, "Unexpected response from server.", err)
	}
	return nil
}

// do sends a request and returns the response only for 2xx statuses
func (c *Client) do(ctx context.Context, hc *http.Client, method string, u *url.URL, in interface{}) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, newError(ErrKindRequest, u.Path, fmt.Sprintf("Request error: %v", err), err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, newError(ErrKindRequest, u.Path, fmt.Sprintf("Request error: %v", err), err)
	}
	c.setHeaders(req, in != nil)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, newError(ErrKindRequest, u.Path, "Request error: request was cancelled", err)
		}
		c.log.WarnWithFields("request failed", []logger.Field{logger.Path(u.Path), logger.Error(err)})
		return nil, newError(ErrKindNetwork, u.Path, MsgNoResponse, err)
	}

	c.log.DebugWithFields("request completed", []logger.Field{
		logger.F("method", method),
		logger.Path(u.Path),
		logger.Status(resp.StatusCode),
		logger.Duration(time.Since(start)),
	})

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()
	return nil, c.handleErrorResponse(resp, u.Path)
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/octet-stream")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.auth != nil {
		c.auth.Authorize(req)
	}
}

func (c *Client) handleErrorResponse(resp *http.Response, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := fromResponse(resp.StatusCode, path, body)

	if apiErr.Kind == ErrKindUnauthorized && c.auth != nil {
		apiErr.PromptLogin = c.auth.HandleUnauthorized(path)
		c.log.Warn("received 401 from %s, session cleared", path)
	} else {
		c.log.WarnWithFields("request rejected", []logger.Field{logger.Path(path), logger.Status(resp.StatusCode)})
	}
	return apiErr
}
