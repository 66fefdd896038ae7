package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the identity the auth collaborator reports for a session.
// Metadata carries provider-specific fields (full_name, avatar_url, ...).
type User struct {
	Id       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// DisplayName resolves a human-readable name for the user:
// metadata full_name, then metadata name, then the email local-part,
// then the literal "User".
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	for _, key := range []string{"full_name", "name"} {
		if v, ok := u.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	if u.Email != "" {
		local, _, _ := strings.Cut(u.Email, "@")
		if local != "" {
			return local
		}
	}
	return "User"
}

// AvatarURL returns the avatar reference from identity metadata, if any.
func (u *User) AvatarURL() string {
	if u == nil {
		return ""
	}
	for _, key := range []string{"avatar_url", "picture"} {
		if v, ok := u.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Session wraps an identity with token material. Validity is owned by the
// auth collaborator; ExpiresAt is a local hint only.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	User         *User     `json:"user,omitempty"`
}

// Valid reports whether the session still looks usable at the given time.
// When ExpiresAt is unset, the access token's exp claim is consulted
// (unverified: the server remains the authority, this is a local freshness
// check only).
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.User == nil || s.AccessToken == "" {
		return false
	}
	exp := s.ExpiresAt
	if exp.IsZero() {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
			return false
		}
		t, err := claims.GetExpirationTime()
		if err != nil || t == nil {
			return false
		}
		exp = t.Time
	}
	return now.Before(exp)
}
