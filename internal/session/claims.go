package session

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

// ErrNoToken is returned when claims are requested while signed out
var ErrNoToken = errors.New("no session token")

// Claims is the displayable content of a JWT bearer token. The signature
// is not checked; the backend remains the authority on validity.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's expiry has passed at now
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the current token. Opaque, non-JWT tokens yield an error.
func (s *Session) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoToken
	}
	return ParseClaims(token)
}

// ParseClaims decodes a JWT without verifying it
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("token is not a readable JWT: %w", err)
	}

	c := Claims{
		Subject:   stringClaim(mc, "sub"),
		Email:     stringClaim(mc, "email"),
		Role:      stringClaim(mc, "role"),
		IssuedAt:  timeClaim(mc, "iat"),
		ExpiresAt: timeClaim(mc, "exp"),
	}
	if c.Email == "" && c.Subject == "" {
		c.Subject = stringClaim(mc, "user_id")
	}
	return c, nil
}

func stringClaim(mc jwt.MapClaims, key string) string {
	switch v := mc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func timeClaim(mc jwt.MapClaims, key string) time.Time {
	if v, ok := mc[key].(float64); ok && v > 0 {
		return time.Unix(int64(v), 0)
	}
	return time.Time{}
}
