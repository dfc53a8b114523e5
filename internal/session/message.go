package session

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MessageAuthToken is the only message type accepted
const MessageAuthToken = "AUTH_TOKEN"

var (
	// ErrOriginRejected is returned for messages from an origin outside the allow-list
	ErrOriginRejected = errors.New("message origin not allowed")

	// ErrUnsupportedMessage is returned for messages that are not credential handovers
	ErrUnsupportedMessage = errors.New("unsupported message")
)

var validate = validator.New()

// Message is a credential handover from another application
type Message struct {
	Type  string `json:"type" validate:"required"`
	Token string `json:"token" validate:"required,max=8192"`
}

// OriginPolicy decides which origins may hand over credentials. With no
// configured origins only loopback origins are accepted; "*" accepts any.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy builds a policy from origins such as "https://portal.example.org"
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{})}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			p.allowAll = true
			continue
		}
		p.allowed[strings.ToLower(o)] = struct{}{}
	}
	return p
}

// Allows reports whether origin may hand over credentials
func (p *OriginPolicy) Allows(origin string) bool {
	if p.allowAll {
		return true
	}
	origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
	if origin == "" {
		return false
	}
	if len(p.allowed) > 0 {
		_, ok := p.allowed[origin]
		return ok
	}
	return isLoopbackOrigin(origin)
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// AcceptMessage adopts the token carried by msg when it comes from an
// allowed origin. The token is mirrored to storage like a local login.
func (s *Session) AcceptMessage(msg Message, origin string) error {
	if !s.origins.Allows(origin) {
		s.log.Warn("rejected credential message from origin %q", origin)
		return fmt.Errorf("%w: %s", ErrOriginRejected, origin)
	}
	if msg.Type != MessageAuthToken {
		return fmt.Errorf("%w: %q", ErrUnsupportedMessage, msg.Type)
	}
	if err := validate.Struct(msg); err != nil {
		return fmt.Errorf("invalid credential message: %w", err)
	}
	return s.set(strings.TrimSpace(msg.Token), SourceMessage, true)
}
