package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

func newTestSession(t *testing.T, opts ...Option) (*Session, *FileStore) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "token"))
	s, err := New(store, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, store
}

func TestSetTokenMirrorsToStore(t *testing.T) {
	s, store := newTestSession(t)

	if err := s.SetToken("abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if got, _ := store.Load(); got != "abc" {
		t.Errorf("stored token = %q, want abc", got)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("token file missing: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	if err := s.SetToken(""); err != nil {
		t.Fatalf("SetToken(\"\") error = %v", err)
	}
	if s.Authenticated() {
		t.Error("session should be signed out")
	}
	if _, err := os.Stat(store.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("token file should be removed, stat err = %v", err)
	}
}

func TestNewLoadsPersistedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := NewFileStore(path).Save("persisted"); err != nil {
		t.Fatal(err)
	}
	s, err := New(NewFileStore(path))
	if err != nil {
		t.Fatal(err)
	}
	if s.Token() != "persisted" {
		t.Errorf("Token() = %q, want persisted", s.Token())
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name  string
		token string
		path  string
		want  string
	}{
		{"no token", "", "/api/alerts/grade-risks/district/1/school/2", ""},
		{"private endpoint", "abc", "/api/alerts/grade-risks/district/1/school/2", "Bearer abc"},
		{"public endpoint", "abc", "/api/alerts/filter-options", ""},
		{"public insights", "abc", "/api/alerts/prediction-insights", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&MemoryStore{})
			if err != nil {
				t.Fatal(err)
			}
			if err := s.SetToken(tt.token); err != nil {
				t.Fatal(err)
			}

			req := httptest.NewRequest("GET", "http://localhost"+tt.path, nil)
			req.Header.Set("Authorization", "Bearer stale")
			s.Authorize(req)

			if got := req.Header.Get("Authorization"); got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleUnauthorized(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		loginSurface bool
		wantPrompt   bool
	}{
		{"private endpoint", "/api/alerts/school-risks/district/4", false, true},
		{"public endpoint", "/api/alerts/filter-options", false, false},
		{"auth endpoint", "/api/auth/me", false, false},
		{"already on login", "/api/alerts/school-risks/district/4", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t)
			if err := s.SetToken("abc"); err != nil {
				t.Fatal(err)
			}
			s.SetLoginSurface(tt.loginSurface)

			if got := s.HandleUnauthorized(tt.path); got != tt.wantPrompt {
				t.Errorf("HandleUnauthorized() = %v, want %v", got, tt.wantPrompt)
			}
			if s.Token() != "" {
				t.Errorf("token should be cleared, got %q", s.Token())
			}
		})
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s, _ := newTestSession(t)

	var changes []Change
	unsubscribe := s.Subscribe(func(c Change) { changes = append(changes, c) })

	_ = s.SetToken("one")
	_ = s.SetToken("one")
	_ = s.Clear()
	unsubscribe()
	_ = s.SetToken("two")

	if len(changes) != 2 {
		t.Fatalf("changes = %d, want 2 (%+v)", len(changes), changes)
	}
	if !changes[0].Authenticated || changes[1].Authenticated {
		t.Errorf("unexpected changes %+v", changes)
	}
}

// gatedStore blocks the first Save until release is closed
type gatedStore struct {
	MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Save(token string) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Save(token)
}

func TestConcurrentSetTokenKeepsStoreInStep(t *testing.T) {
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	s, err := New(store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.SetToken("a")
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		_ = s.SetToken("b")
	}()

	// b must wait for a to finish persisting
	time.Sleep(50 * time.Millisecond)
	if got := s.Token(); got != "a" {
		t.Errorf("token while a is persisting = %q, want a", got)
	}

	close(store.release)
	wg.Wait()

	stored, _ := store.Load()
	if got := s.Token(); got != stored {
		t.Errorf("memory = %q, stored = %q, want them equal", got, stored)
	}
	if stored != "b" {
		t.Errorf("stored = %q, want b", stored)
	}
}

func TestAcceptMessage(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		msg     Message
		wantErr error
	}{
		{"loopback by default", nil, "http://localhost:5173", Message{Type: MessageAuthToken, Token: "t1"}, nil},
		{"loopback ip", nil, "http://127.0.0.1:3000", Message{Type: MessageAuthToken, Token: "t1"}, nil},
		{"remote rejected by default", nil, "https://evil.example", Message{Type: MessageAuthToken, Token: "t1"}, ErrOriginRejected},
		{"allow-listed origin", []string{"https://portal.example.org/"}, "https://portal.example.org", Message{Type: MessageAuthToken, Token: "t1"}, nil},
		{"not on allow-list", []string{"https://portal.example.org"}, "http://localhost", Message{Type: MessageAuthToken, Token: "t1"}, ErrOriginRejected},
		{"wildcard", []string{"*"}, "https://anything.example", Message{Type: MessageAuthToken, Token: "t1"}, nil},
		{"wrong type", nil, "http://localhost", Message{Type: "PING", Token: "t1"}, ErrUnsupportedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestSession(t, WithAllowedOrigins(tt.allowed))
			err := s.AcceptMessage(tt.msg, tt.origin)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AcceptMessage() error = %v, want %v", err, tt.wantErr)
				}
				if s.Token() != "" {
					t.Errorf("token adopted despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("AcceptMessage() error = %v", err)
			}
			if s.Token() != tt.msg.Token {
				t.Errorf("Token() = %q, want %q", s.Token(), tt.msg.Token)
			}
			if stored, _ := store.Load(); stored != tt.msg.Token {
				t.Errorf("stored = %q, want %q", stored, tt.msg.Token)
			}
		})
	}
}

func TestAcceptMessageRequiresToken(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.AcceptMessage(Message{Type: MessageAuthToken}, "http://localhost"); err == nil {
		t.Error("expected validation error for empty token")
	}
}

func TestWatcherAdoptsExternalChanges(t *testing.T) {
	s, store := newTestSession(t)
	w := NewWatcher(s, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
	case err := <-done:
		t.Fatalf("watcher stopped: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}

	other := NewFileStore(store.Path())
	if err := other.Save("from-another-process"); err != nil {
		t.Fatal(err)
	}
	waitForToken(t, s, "from-another-process")

	if err := other.Clear(); err != nil {
		t.Fatal(err)
	}
	waitForToken(t, s, "")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func waitForToken(t *testing.T, s *Session, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.Token() == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("token = %q, want %q", s.Token(), want)
}

func TestClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "42",
		"email": "teacher@example.org",
		"exp":   exp,
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	s, _ := newTestSession(t)
	if _, err := s.Claims(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Claims() without token error = %v", err)
	}

	_ = s.SetToken(signed)
	c, err := s.Claims()
	if err != nil {
		t.Fatalf("Claims() error = %v", err)
	}
	if c.Email != "teacher@example.org" || c.Subject != "42" {
		t.Errorf("claims = %+v", c)
	}
	if c.ExpiresAt.Unix() != exp || c.Expired(time.Now()) {
		t.Errorf("expiry = %v", c.ExpiresAt)
	}

	if _, err := ParseClaims("opaque-token"); err == nil {
		t.Error("expected error for opaque token")
	}
}
