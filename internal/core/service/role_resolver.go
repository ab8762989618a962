package service

import (
	"context"
	"strings"
	"time"

	"github.com/carrent/auth-engine/internal/api/metrics"
	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
	"github.com/carrent/auth-engine/internal/core/race"
)

// resolveRole decides the authorization role for an identity. First
// applicable tier wins:
//
//  1. refresh fail-open: a known admin is only downgraded when the store
//     explicitly says so, never on an error or timeout
//  2. full resolution against the profile store (id, auth id, email)
//  3. admin email heuristic (bootstrap accounts, disabled when unconfigured)
//  4. cached role / metadata role / current role on refresh
//  5. default customer
//
// Network failures are always recovered locally; this function never errors.
func (e *Engine) resolveRole(ctx context.Context, identity *domain.IdentityRecord, isRefresh bool, current *domain.LocalUser) domain.Role {
	if identity == nil {
		return domain.RoleCustomer
	}

	// 1. Refresh fail-open for admins.
	if isRefresh && current != nil && current.Role == domain.RoleAdmin {
		p, err := e.lookupProfile(ctx, ports.ProfileFieldAuthID, identity.ID, e.cfg.RoleLookupTimeout)
		if err != nil {
			// Could not positively disprove admin status: keep it.
			e.log.Warn().Err(err).Str("email", identity.Email).
				Msg("admin refresh check unavailable, keeping admin role")
			metrics.RoleResolutionsTotal.WithLabelValues("refresh_failopen", string(domain.RoleAdmin)).Inc()
			return domain.RoleAdmin
		}
		metrics.RoleResolutionsTotal.WithLabelValues("refresh_failopen", string(p.Role)).Inc()
		return p.Role
	}

	// 2. Full resolution: try each lookup strategy under its own deadline.
	strategies := []struct {
		field ports.ProfileField
		value string
	}{
		{ports.ProfileFieldID, identity.ID},
		{ports.ProfileFieldAuthID, identity.ID},
		{ports.ProfileFieldEmail, identity.Email},
	}
	for _, s := range strategies {
		if s.value == "" {
			continue
		}
		p, err := e.lookupProfile(ctx, s.field, s.value, e.cfg.RoleLookupTimeout)
		if err != nil {
			continue
		}
		if p.Role == domain.RoleAdmin {
			e.persistAdminRole(ctx, identity)
		}
		metrics.RoleResolutionsTotal.WithLabelValues("store", string(p.Role)).Inc()
		return p.Role
	}

	// 3. Heuristic admin seed: lets the bootstrap admin account in before
	// any profile record exists.
	if e.isAdminEmail(identity.Email) {
		e.log.Info().Str("email", identity.Email).Msg("admin role seeded from configured admin email")
		e.persistAdminRole(ctx, identity)
		metrics.RoleResolutionsTotal.WithLabelValues("heuristic", string(domain.RoleAdmin)).Inc()
		return domain.RoleAdmin
	}

	// 4. Cache and metadata fallbacks.
	if cached, ok, err := e.roles.GetRole(ctx, identity.ID); err == nil && ok && cached == domain.RoleAdmin {
		metrics.RoleResolutionsTotal.WithLabelValues("cache", string(domain.RoleAdmin)).Inc()
		return domain.RoleAdmin
	}
	if meta, ok := identity.MetadataRole(); ok && meta == domain.RoleAdmin {
		metrics.RoleResolutionsTotal.WithLabelValues("cache", string(domain.RoleAdmin)).Inc()
		return domain.RoleAdmin
	}
	if isRefresh && current != nil && current.Role == domain.RoleAdmin {
		metrics.RoleResolutionsTotal.WithLabelValues("cache", string(domain.RoleAdmin)).Inc()
		return domain.RoleAdmin
	}

	// 5. Default.
	metrics.RoleResolutionsTotal.WithLabelValues("default", string(domain.RoleCustomer)).Inc()
	return domain.RoleCustomer
}

func (e *Engine) lookupProfile(ctx context.Context, field ports.ProfileField, value string, timeout time.Duration) (*domain.Profile, error) {
	return race.WithTimeout(ctx, timeout, func(ctx context.Context) (*domain.Profile, error) {
		return e.profiles.FindByField(ctx, field, value)
	})
}

// persistAdminRole writes a positive admin determination back into identity
// metadata and the local cache so future fast paths skip the network. Both
// writes are best-effort.
func (e *Engine) persistAdminRole(ctx context.Context, identity *domain.IdentityRecord) {
	if err := e.roles.SetRole(ctx, identity.ID, domain.RoleAdmin); err != nil {
		e.log.Warn().Err(err).Msg("role cache write failed")
	}
	if _, ok := identity.MetadataRole(); ok {
		return // metadata already carries the role, skip the backend round trip
	}
	if err := e.provider.UpdateIdentityMetadata(ctx, map[string]string{domain.MetadataRoleKey: string(domain.RoleAdmin)}); err != nil {
		e.log.Warn().Err(err).Msg("identity metadata role write-back failed")
	}
}

func (e *Engine) isAdminEmail(email string) bool {
	return e.cfg.AdminEmail != "" && strings.EqualFold(email, e.cfg.AdminEmail)
}
