// Package session holds the bearer token for the lifetime of the program
// and keeps it consistent with persistent storage, cross-process changes
// and credentials handed over by other applications.
package session

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/yildizm/AttendSum/internal/logger"
)

// Source records how the current token arrived
type Source string

const (
	SourceLocal   Source = "local"
	SourceStorage Source = "storage"
	SourceMessage Source = "message"
	SourceExpired Source = "unauthorized"
)

// DefaultPublicEndpoints are path fragments served without a bearer token
var DefaultPublicEndpoints = []string{
	"filter-options",
	"schools/district",
	"grades/district",
	"prediction-insights",
	"auth/login",
}

// authSurface marks requests that belong to the login flow itself
const authSurface = "/auth/"

// Change is delivered to subscribers whenever the token changes
type Change struct {
	Token         string
	Authenticated bool
	Source        Source
}

// Session owns the in-memory token. It is created at startup, passed to
// whoever needs it and closed on shutdown.
type Session struct {
	// writeMu orders token writes so storage ends with the last value
	// set in memory
	writeMu sync.Mutex

	mu             sync.RWMutex
	token          string
	store          Store
	public         []string
	origins        *OriginPolicy
	loginSurface   bool
	subscribers    map[int]func(Change)
	nextSubscriber int
	log            *logger.Logger
}

// Option configures a Session
type Option func(*Session)

// WithPublicEndpoints replaces the public path fragments
func WithPublicEndpoints(fragments []string) Option {
	return func(s *Session) {
		s.public = append([]string(nil), fragments...)
	}
}

// WithAllowedOrigins sets the origins credential messages are accepted from
func WithAllowedOrigins(origins []string) Option {
	return func(s *Session) {
		s.origins = NewOriginPolicy(origins)
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// New creates a session and loads any persisted token
func New(store Store, opts ...Option) (*Session, error) {
	if store == nil {
		store = &MemoryStore{}
	}
	s := &Session{
		store:       store,
		public:      append([]string(nil), DefaultPublicEndpoints...),
		origins:     NewOriginPolicy(nil),
		subscribers: make(map[int]func(Change)),
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	token, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.token = token
	return s, nil
}

// Token returns the current token, "" when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is held
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken replaces the token in memory and storage. An empty token signs
// the session out.
func (s *Session) SetToken(token string) error {
	return s.set(strings.TrimSpace(token), SourceLocal, true)
}

// Clear signs the session out
func (s *Session) Clear() error {
	return s.SetToken("")
}

// Sync reloads the token from storage, adopting changes made by another
// process
func (s *Session) Sync() error {
	s.writeMu.Lock()
	token, err := s.store.Load()
	if err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("failed to reload session: %w", err)
	}
	changed := s.swap(token)
	s.writeMu.Unlock()

	s.announce(token, SourceStorage, changed)
	return nil
}

func (s *Session) set(token string, src Source, persist bool) error {
	s.writeMu.Lock()
	changed := s.swap(token)
	var err error
	if persist {
		if token == "" {
			err = s.store.Clear()
		} else {
			err = s.store.Save(token)
		}
		if err != nil {
			err = fmt.Errorf("failed to persist session: %w", err)
		}
	}
	s.writeMu.Unlock()

	s.announce(token, src, changed)
	return err
}

// swap replaces the in-memory token and reports whether it changed
func (s *Session) swap(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.token != token
	s.token = token
	return changed
}

func (s *Session) announce(token string, src Source, changed bool) {
	if !changed {
		return
	}
	s.log.DebugWithFields("session changed", []logger.Field{
		logger.F("source", src),
		logger.F("authenticated", token != ""),
	})
	s.notify(Change{Token: token, Authenticated: token != "", Source: src})
}

// Subscribe registers fn for token changes and returns a function that
// removes it
func (s *Session) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(c Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// IsPublic reports whether path is served without a bearer token
func (s *Session) IsPublic(path string) bool {
	for _, fragment := range s.public {
		if fragment != "" && strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

// Authorize sets or removes the bearer credential on req
func (s *Session) Authorize(req *http.Request) {
	token := s.Token()
	if token == "" || s.IsPublic(req.URL.Path) {
		req.Header.Del("Authorization")
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// SetLoginSurface records whether the user is currently on the login prompt
func (s *Session) SetLoginSurface(on bool) {
	s.mu.Lock()
	s.loginSurface = on
	s.mu.Unlock()
}

// HandleUnauthorized signs the session out after a 401 from path and
// reports whether the user should be sent to the login prompt.
func (s *Session) HandleUnauthorized(path string) bool {
	if err := s.set("", SourceExpired, true); err != nil {
		s.log.Warn("failed to clear expired session: %v", err)
	}

	s.mu.RLock()
	onLogin := s.loginSurface
	s.mu.RUnlock()

	if onLogin || s.IsPublic(path) || strings.Contains(path, authSurface) {
		return false
	}
	return true
}

// Close detaches all subscribers. The persisted token is left in place.
func (s *Session) Close() error {
	s.mu.Lock()
	s.subscribers = make(map[int]func(Change))
	s.mu.Unlock()
	return nil
}
