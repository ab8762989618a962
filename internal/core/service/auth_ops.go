package service

import (
	"context"
	"time"

	"github.com/carrent/auth-engine/internal/api/metrics"
	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
	"github.com/carrent/auth-engine/internal/core/race"
)

const warmTimeout = 10 * time.Second

// Login exchanges credentials for a session. Backend failures come back as
// typed failures, never as raw errors. A successful credential exchange
// always yields an authenticated state, even when the profile resolver had
// to fall back to a synthesized user.
func (e *Engine) Login(ctx context.Context, email, password string) *ports.LoginResult {
	e.setOperationLoading(true)
	defer e.setOperationLoading(false)

	session, err := e.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		failure := domain.ClassifyAuthError(err)
		e.log.Warn().Str("email", email).Str("kind", string(failure.Kind)).Msg("login failed")
		metrics.AuthOperationsTotal.WithLabelValues("login", string(failure.Kind)).Inc()
		return &ports.LoginResult{Failure: failure}
	}

	user := e.resolveProfile(ctx, session.Identity, false)
	e.setAuthenticated(session, user)
	e.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("login succeeded")
	metrics.AuthOperationsTotal.WithLabelValues("login", "ok").Inc()

	// Warm the vehicle read cache in the background. Fire-and-forget: the
	// login result is already decided.
	go func(role domain.Role) {
		warmCtx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		defer cancel()
		if err := e.warmer.Warm(warmCtx, role); err != nil {
			e.log.Debug().Err(err).Msg("vehicle cache warm failed")
		}
	}(user.Role)

	return &ports.LoginResult{User: user, Session: session}
}

// Register creates a remote identity and, best-effort, a backing profile
// record. A profile insert failure is non-fatal: the identity exists and the
// profile is completed on first login. When the backend withholds the
// session pending email confirmation, the result is the distinct
// PendingConfirmation success state.
func (e *Engine) Register(ctx context.Context, input ports.RegisterInput) *ports.RegisterResult {
	e.setOperationLoading(true)
	defer e.setOperationLoading(false)

	metadata := map[string]string{}
	if input.FullName != "" {
		metadata["full_name"] = input.FullName
	}
	if input.PhoneNumber != "" {
		metadata["phone_number"] = input.PhoneNumber
	}

	signUp, err := e.provider.SignUp(ctx, input.Email, input.Password, metadata)
	if err != nil {
		failure := domain.ClassifyAuthError(err)
		e.log.Warn().Str("email", input.Email).Str("kind", string(failure.Kind)).Msg("registration failed")
		metrics.AuthOperationsTotal.WithLabelValues("register", string(failure.Kind)).Inc()
		return &ports.RegisterResult{Failure: failure}
	}

	now := time.Now().UTC()
	if _, err := race.WithTimeout(ctx, e.cfg.ProfileCreateTimeout, func(ctx context.Context) (*domain.Profile, error) {
		return e.profiles.Insert(ctx, &domain.Profile{
			AuthID:      signUp.Identity.ID,
			Email:       input.Email,
			FullName:    input.FullName,
			PhoneNumber: input.PhoneNumber,
			Role:        domain.RoleCustomer,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}); err != nil {
		e.log.Warn().Err(err).Str("email", input.Email).
			Msg("profile record creation failed, will be completed on first login")
	}

	if signUp.Session == nil {
		e.log.Info().Str("email", input.Email).Msg("registration pending email confirmation")
		metrics.AuthOperationsTotal.WithLabelValues("register", "pending_confirmation").Inc()
		return &ports.RegisterResult{PendingConfirmation: true}
	}

	user := e.resolveProfile(ctx, signUp.Session.Identity, false)
	e.setAuthenticated(signUp.Session, user)
	e.log.Info().Str("email", user.Email).Msg("registration succeeded")
	metrics.AuthOperationsTotal.WithLabelValues("register", "ok").Inc()
	return &ports.RegisterResult{User: user, Session: signUp.Session}
}

// Logout always succeeds from the caller's perspective. Local state is
// cleared before any network call so the UI reacts immediately; the remote
// sign-out runs under a bound and its outcome is ignored; the local caches
// are cleared last. Whatever step fails, the final observable state is
// unauthenticated with caches empty.
func (e *Engine) Logout(ctx context.Context) {
	e.clearAuthenticated()

	if _, err := race.WithTimeout(ctx, e.cfg.SignOutTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.provider.SignOut(ctx)
	}); err != nil {
		e.log.Debug().Err(err).Msg("remote sign-out failed or timed out, ignored")
	}

	if err := e.roles.Clear(ctx); err != nil {
		e.log.Warn().Err(err).Msg("auth cache clear failed")
	}

	metrics.AuthOperationsTotal.WithLabelValues("logout", "ok").Inc()
	e.log.Info().Msg("logged out")
}

// UpdateUser applies partial profile edits for the signed-in user: the
// backing profile record when one exists, identity metadata either way, and
// finally the in-memory user, replaced atomically.
func (e *Engine) UpdateUser(ctx context.Context, input ports.UpdateUserInput) (*domain.LocalUser, *domain.AuthFailure) {
	session := e.currentSession()
	cur := e.currentUser()
	if session == nil || session.Identity == nil || cur == nil {
		return nil, &domain.AuthFailure{Kind: domain.FailUnknown, Message: "no signed-in user to update"}
	}

	next := *cur
	metadata := map[string]string{}
	if input.FullName != nil {
		next.FullName = *input.FullName
		metadata["full_name"] = *input.FullName
	}
	if input.PhoneNumber != nil {
		next.PhoneNumber = *input.PhoneNumber
		metadata["phone_number"] = *input.PhoneNumber
	}
	if input.AvatarURL != nil {
		next.AvatarURL = *input.AvatarURL
		metadata["avatar_url"] = *input.AvatarURL
	}
	if len(metadata) == 0 {
		return cur, nil
	}
	next.UpdatedAt = time.Now().UTC()

	if next.ID != "" {
		p, err := e.lookupProfile(ctx, ports.ProfileFieldID, next.ID, e.cfg.RoleLookupTimeout)
		if err == nil {
			p.FullName = next.FullName
			p.PhoneNumber = next.PhoneNumber
			p.AvatarURL = next.AvatarURL
			p.UpdatedAt = next.UpdatedAt
			if err := e.profiles.Update(ctx, p); err != nil {
				failure := domain.ClassifyAuthError(err)
				e.log.Warn().Err(err).Msg("profile update failed")
				return nil, failure
			}
		}
	}

	if err := e.provider.UpdateIdentityMetadata(ctx, metadata); err != nil {
		e.log.Warn().Err(err).Msg("identity metadata update failed")
	}

	gen := e.currentGeneration()
	if !e.setUserIfCurrent(gen, &next) {
		return nil, &domain.AuthFailure{Kind: domain.FailUnknown, Message: "session changed during update"}
	}
	return &next, nil
}

// IsAdminUser forces a fresh authoritative role check for the current
// session, falling back to the in-memory role when the store is
// unreachable. Debug surface; the resolver tiers remain the real mechanism.
func (e *Engine) IsAdminUser(ctx context.Context) bool {
	session := e.currentSession()
	if session == nil || session.Identity == nil {
		return false
	}
	p, err := e.lookupProfile(ctx, ports.ProfileFieldAuthID, session.Identity.ID, e.cfg.RoleLookupTimeout)
	if err != nil {
		cur := e.currentUser()
		return cur != nil && cur.Role == domain.RoleAdmin
	}
	return p.Role == domain.RoleAdmin
}

// ClearRoleCache drops every locally cached role value. Debug surface.
func (e *Engine) ClearRoleCache(ctx context.Context) error {
	return e.roles.Clear(ctx)
}
