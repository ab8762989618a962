package ports

import (
	"context"

	"github.com/carrent/auth-engine/internal/core/domain"
)

// SignUpResult is returned by IdentityProvider.SignUp. Session is nil when
// the backend requires email confirmation before issuing a session.
type SignUpResult struct {
	Identity *domain.IdentityRecord
	Session  *domain.Session
}

// IdentityProvider abstracts the remote identity backend: credential
// exchange, session lifecycle, metadata updates and the asynchronous
// auth-event stream.
type IdentityProvider interface {
	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	// SignUp creates a remote identity. Metadata is attached to the new
	// identity record verbatim.
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*SignUpResult, error)

	// GetSession returns the current session, or (nil, nil) when no session
	// exists.
	GetSession(ctx context.Context) (*domain.Session, error)

	// RefreshSession exchanges the stored refresh token for a fresh session.
	// Returns domain.ErrRefreshInvalid when the refresh token is expired or
	// unknown.
	RefreshSession(ctx context.Context) (*domain.Session, error)

	// SignOut invalidates the current session on the backend.
	SignOut(ctx context.Context) error

	// UpdateIdentityMetadata merges the given keys into the current
	// identity's metadata map. Backends re-emit a USER_UPDATED event as a
	// side effect.
	UpdateIdentityMetadata(ctx context.Context, metadata map[string]string) error

	// SubscribeAuthEvents registers a callback for auth-state change events.
	// The returned function cancels the subscription.
	SubscribeAuthEvents(fn func(domain.AuthEvent)) (unsubscribe func())
}
