package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the profile role tag used for route gating. It is a UX hint,
// not a security boundary; servers must enforce authorization on their own.
type Role = string

const (
	// RoleUser is the default role assigned on provisioning
	RoleUser Role = "user"
	// RoleAdmin grants access to admin routes
	RoleAdmin Role = "admin"
	// RoleDoctor is a practice-specific role used by scheduling routes
	RoleDoctor Role = "doctor"
	// RolePatient is a practice-specific role used by scheduling routes
	RolePatient Role = "patient"
)

// Profile is the application-specific user record, one row per
// authenticated user, keyed by the auth identity id.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FullName      string     `bun:"full_name" json:"full_name,omitempty"`
	Role          Role       `bun:"role,notnull" json:"role,omitempty"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// RoleOrDefault returns the profile role, defaulting to RoleUser when the
// profile is missing or carries no role.
func RoleOrDefault(p *Profile) Role {
	if p == nil || p.Role == "" {
		return RoleUser
	}
	return p.Role
}

// ProfileChanges carries the mutable profile fields; nil means "leave as is".
type ProfileChanges struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Phone     *string `json:"phone_number,omitempty"`
}

func (c ProfileChanges) isEmpty() bool {
	return c.FullName == nil && c.AvatarURL == nil && c.Phone == nil
}

// User is the auth identity row backing the reference LocalBackend.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"password_hash,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// PasswordResetStatus tracks the lifecycle of a reset request
type PasswordResetStatus = string

const (
	ResetRequestedStatus PasswordResetStatus = "requested"
	ResetExpiredStatus   PasswordResetStatus = "expired"
	ResetChangedStatus   PasswordResetStatus = "changed"
)

// PasswordReset records a password reset request issued by the backend.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_reset,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ResetedAt     *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// NameFromEmail derives a display name from the email local part, used when
// provisioning a profile without an explicit name.
func NameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
