package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the read-side view of a validated session token.
type Claims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete JWT claims payload minted for local
// backend sessions.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	UserEmail string `json:"email,omitempty"`
	UserRole  string `json:"role,omitempty"`
}

var _ Claims = (*SessionClaims)(nil)

func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the uid claim, falling back to the subject.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

func (c *SessionClaims) Email() string {
	return c.UserEmail
}

// Role returns the profile role embedded at mint time, defaulting to
// RoleUser when absent.
func (c *SessionClaims) Role() string {
	if c.UserRole == "" {
		return RoleUser
	}
	return c.UserRole
}

func (c *SessionClaims) HasRole(role string) bool {
	return c.Role() == role
}

func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// AuthUserFromClaims rebuilds the bare identity carried by a token.
func AuthUserFromClaims(claims Claims) (*AuthUser, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}
	return authUserFromSubject(claims.UserID(), claims.Email())
}

func authUserFromSubject(userID, email string) (*AuthUser, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	return &AuthUser{ID: id, Email: email}, nil
}
