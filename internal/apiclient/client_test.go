package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler, sess *session.Session) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/api/alerts"
	cfg.AuthURL = server.URL + "/api/auth"

	var auth Authorizer
	if sess != nil {
		auth = sess
	}
	c, err := New(cfg, auth, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func newSession(t *testing.T, token string) *session.Session {
	t.Helper()
	s, err := session.New(&session.MemoryStore{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetToken(token); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing base", func(c *Config) { c.BaseURL = "" }, true},
		{"bad base", func(c *Config) { c.BaseURL = "not a url" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBearerAttachment(t *testing.T) {
	var gotAuth = map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/alerts/filter-options", func(w http.ResponseWriter, r *http.Request) {
		gotAuth["options"] = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"districts":[{"value":"D1","label":"North"}],"schools":[],"grades":[]}`))
	})
	mux.HandleFunc("/api/alerts/school-risks/district/1", func(w http.ResponseWriter, r *http.Request) {
		gotAuth["risks"] = r.Header.Get("Authorization")
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		_, _ = w.Write([]byte(`{"schools":[{"school_name":"A","risk_percentage":31,"student_count":10,"risk_level":"Critical"}],"total_students":10}`))
	})

	c := newTestClient(t, mux, newSession(t, "abc"))
	ctx := context.Background()

	opts, err := c.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	if len(opts.Districts) != 1 || opts.Districts[0].Label != "North" {
		t.Errorf("districts = %+v", opts.Districts)
	}

	report, err := c.SchoolRisks(ctx, "1")
	if err != nil {
		t.Fatalf("SchoolRisks() error = %v", err)
	}
	if report.Schools[0].RiskLevel != "Critical" {
		t.Errorf("schools = %+v", report.Schools)
	}

	if gotAuth["options"] != "" {
		t.Errorf("public endpoint got Authorization %q", gotAuth["options"])
	}
	if gotAuth["risks"] != "Bearer abc" {
		t.Errorf("private endpoint Authorization = %q, want Bearer abc", gotAuth["risks"])
	}
}

func TestNoTokenNoHeader(t *testing.T) {
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"grades":[]}`))
	})
	c := newTestClient(t, handler, newSession(t, ""))

	if _, err := c.GradeRisks(context.Background(), "1", "2"); err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("Authorization = %q, want none", got)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{"not found", http.StatusNotFound, ``, ErrKindNotFound, MsgNotFound},
		{"initializing", http.StatusServiceUnavailable, ``, ErrKindUnavailable, MsgUnavailable},
		{"server", http.StatusInternalServerError, `oops`, ErrKindServer, "Server error: 500"},
		{"detail wins", http.StatusBadRequest, `{"detail":"District code is invalid"}`, ErrKindClient, "District code is invalid"},
		{"structured detail ignored", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body"]}]}`, ErrKindClient, "Server error: 422"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c := newTestClient(t, handler, nil)

			_, err := c.PredictionInsights(context.Background(), common.Criteria{DistrictCode: "1"})
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("kind = %s, want %s", KindOf(err), tt.wantKind)
			}
			if Message(err) != tt.wantMsg {
				t.Errorf("message = %q, want %q", Message(err), tt.wantMsg)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = url + "/api/alerts"
	c, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.FilterOptions(context.Background())
	if !IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if Message(err) != MsgNoResponse {
		t.Errorf("message = %q", Message(err))
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	sess := newSession(t, "expired")
	c := newTestClient(t, handler, sess)

	_, err := c.SchoolRisks(context.Background(), "7")
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if sess.Token() != "" {
		t.Errorf("token = %q, want cleared", sess.Token())
	}
	if !NeedsLogin(err) {
		t.Error("private endpoint 401 should prompt login")
	}

	_ = sess.SetToken("again")
	_, err = c.FilterOptions(context.Background())
	if NeedsLogin(err) {
		t.Error("public endpoint 401 should not prompt login")
	}
	if sess.Token() != "" {
		t.Error("token should be cleared after any 401")
	}
}

func TestLogin(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if creds.Email != "a@b.org" || creds.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok","user":{"id":7,"email":"a@b.org"}}`))
	})
	c := newTestClient(t, handler, newSession(t, ""))

	resp, err := c.Login(context.Background(), Credentials{Email: "a@b.org", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token != "tok" || resp.User.ID != "7" {
		t.Errorf("resp = %+v", resp)
	}

	_, err = c.Login(context.Background(), Credentials{Email: "a@b.org", Password: "bad"})
	if Message(err) != "Invalid credentials" || NeedsLogin(err) {
		t.Errorf("bad password err = %v", err)
	}

	_, err = c.Login(context.Background(), Credentials{Email: "not-an-email", Password: "pw"})
	if KindOf(err) != ErrKindRequest {
		t.Errorf("invalid email kind = %s", KindOf(err))
	}
}

func TestDownloadReport(t *testing.T) {
	payload := []byte{0x50, 0x4b, 0x03, 0x04, 0x01}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts/download/report/below_85" {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["reportType"] != "below_85" || body["districtCode"] != "3" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	})
	c := newTestClient(t, handler, nil)

	data, err := c.DownloadReport(context.Background(), common.ReportBelow85, common.Criteria{DistrictCode: "3"})
	if err != nil {
		t.Fatalf("DownloadReport() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("data = %v", data)
	}
}

func TestErrorIs(t *testing.T) {
	err := error(&Error{Kind: ErrKindServer, Message: "x"})
	if !errors.Is(err, &Error{Kind: ErrKindServer}) {
		t.Error("errors.Is should match on kind")
	}
	if errors.Is(err, &Error{Kind: ErrKindNetwork}) {
		t.Error("different kinds should not match")
	}
	if Message(errors.New("boom")) != "Request error: boom" {
		t.Errorf("foreign error message = %q", Message(errors.New("boom")))
	}
}
