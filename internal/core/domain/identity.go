package domain

import (
	"errors"
	"time"
)

// Role is the authorization level resolved for a signed-in user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// MetadataRoleKey is the key under which a previously resolved role is
// written back into IdentityRecord metadata.
const MetadataRoleKey = "role"

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserExists = errors.New("user already exists")
var ErrUserNotFound = errors.New("user not found")
var ErrProfileNotFound = errors.New("profile not found")
var ErrSessionNotFound = errors.New("no active session")
var ErrRefreshInvalid = errors.New("refresh token invalid or expired")
var ErrAccountNotConfirmed = errors.New("account not confirmed")
var ErrForbidden = errors.New("access forbidden")

// IdentityRecord is the remote identity backend's notion of a signed-in
// principal. It is an immutable snapshot; a new one arrives with every
// session change event.
type IdentityRecord struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MetadataRole returns the role embedded in the record's metadata, if any.
func (r *IdentityRecord) MetadataRole() (Role, bool) {
	if r == nil || r.Metadata == nil {
		return "", false
	}
	v, ok := r.Metadata[MetadataRoleKey]
	if !ok || v == "" {
		return "", false
	}
	return Role(v), true
}

// Session is the local representation of "currently signed in". It is owned
// exclusively by the engine; consumers only read it. Replaced wholesale on
// every SIGNED_IN / TOKEN_REFRESHED event, cleared on sign-out.
type Session struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"-"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Identity     *IdentityRecord `json:"identity"`
}

// LocalUser is the fully resolved, UI-facing profile. Derived, never mutated
// in place: the engine always replaces it atomically with a freshly computed
// value. ID may be empty when no backing profile record exists yet.
type LocalUser struct {
	ID          string    `json:"id,omitempty"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        Role      `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is a record in the profile store, the authoritative source for
// id, full name, phone number, avatar and active flag.
type Profile struct {
	ID          string    `json:"id"`
	AuthID      string    `json:"auth_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	AvatarURL   string    `json:"avatar_url"`
	Role        Role      `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LocalUserFromProfile builds the UI-facing user from an authoritative
// profile record.
func LocalUserFromProfile(p *Profile) *LocalUser {
	return &LocalUser{
		ID:          p.ID,
		Email:       p.Email,
		FullName:    p.FullName,
		PhoneNumber: p.PhoneNumber,
		AvatarURL:   p.AvatarURL,
		Role:        p.Role,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// SynthesizeLocalUser builds a minimal user from an identity record plus a
// resolved role. Used on every fallback path where the profile store could
// not be consulted; ID stays empty because no backing record is known.
func SynthesizeLocalUser(identity *IdentityRecord, role Role) *LocalUser {
	return &LocalUser{
		Email:     identity.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: identity.CreatedAt,
		UpdatedAt: identity.UpdatedAt,
	}
}
