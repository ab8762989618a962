package ports

import (
	"context"

	"github.com/carrent/auth-engine/internal/core/domain"
)

// Snapshot is the read-only state tuple exposed to consumers. It is a
// fully-formed copy; readers never observe a partial write.
type Snapshot struct {
	Session          *domain.Session   `json:"session"`
	User             *domain.LocalUser `json:"user"`
	IsLoading        bool              `json:"is_loading"`
	OperationLoading bool              `json:"operation_loading"`
	IsAuthenticated  bool              `json:"is_authenticated"`
}

// LoginResult is the typed outcome of Login. Exactly one of
// (User+Session) or Failure is set.
type LoginResult struct {
	User    *domain.LocalUser   `json:"user,omitempty"`
	Session *domain.Session     `json:"session,omitempty"`
	Failure *domain.AuthFailure `json:"failure,omitempty"`
}

// OK reports whether the login succeeded.
func (r *LoginResult) OK() bool { return r.Failure == nil }

// RegisterInput carries the fields collected by the sign-up form.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// RegisterResult is the typed outcome of Register. PendingConfirmation is a
// distinct success state: the identity exists but no session was issued yet.
type RegisterResult struct {
	User                *domain.LocalUser   `json:"user,omitempty"`
	Session             *domain.Session     `json:"session,omitempty"`
	PendingConfirmation bool                `json:"pending_confirmation,omitempty"`
	Failure             *domain.AuthFailure `json:"failure,omitempty"`
}

// OK reports whether the registration succeeded (including the
// confirmation-pending outcome).
func (r *RegisterResult) OK() bool { return r.Failure == nil }

// UpdateUserInput carries partial profile updates; nil fields are left
// untouched.
type UpdateUserInput struct {
	FullName    *string
	PhoneNumber *string
	AvatarURL   *string
}

// AuthEngine is the consumer-facing surface of the session and role
// resolution engine.
type AuthEngine interface {
	Snapshot() Snapshot
	Login(ctx context.Context, email, password string) *LoginResult
	Register(ctx context.Context, input RegisterInput) *RegisterResult
	Logout(ctx context.Context)
	UpdateUser(ctx context.Context, input UpdateUserInput) (*domain.LocalUser, *domain.AuthFailure)
	// IsAdminUser forces a fresh authoritative role check for the current
	// session. Debug-oriented.
	IsAdminUser(ctx context.Context) bool
	// ClearRoleCache drops all locally cached role state. Debug-oriented.
	ClearRoleCache(ctx context.Context) error
}
