package service

import (
	"context"

	"github.com/carrent/auth-engine/internal/api/metrics"
	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

// resolveProfile produces the UI-facing LocalUser for an identity. It is a
// total function: every failure path degrades to a synthesized user rather
// than an error, so callers always end up with a usable profile.
func (e *Engine) resolveProfile(ctx context.Context, identity *domain.IdentityRecord, isRefresh bool) *domain.LocalUser {
	if identity == nil {
		return nil
	}

	// Fast path A: the configured admin account needs no network round trip.
	if e.isAdminEmail(identity.Email) {
		metrics.ProfileResolutionsTotal.WithLabelValues("fast_admin").Inc()
		return domain.SynthesizeLocalUser(identity, domain.RoleAdmin)
	}

	// Fast path B: on refresh, a role already synced into metadata is
	// trusted as-is. Re-resolving here is exactly what lets a slow or
	// erroring lookup clobber a correct in-memory role mid-session.
	if isRefresh {
		if role, ok := identity.MetadataRole(); ok {
			metrics.ProfileResolutionsTotal.WithLabelValues("fast_metadata").Inc()
			return domain.SynthesizeLocalUser(identity, role)
		}
	}

	// Primary path: one bounded lookup by email. The store is the source of
	// truth for id, full name, phone number, avatar and active flag.
	p, err := e.lookupProfile(ctx, ports.ProfileFieldEmail, identity.Email, e.cfg.ProfileLookupTimeout)
	if err == nil {
		metrics.ProfileResolutionsTotal.WithLabelValues("store").Inc()
		return domain.LocalUserFromProfile(p)
	}
	e.log.Debug().Err(err).Str("email", identity.Email).
		Msg("profile lookup unavailable, synthesizing from identity record")

	// Fallback path: role resolver plus identity fields. ID stays empty
	// because no backing record is known.
	role := e.resolveRole(ctx, identity, isRefresh, e.currentUser())
	metrics.ProfileResolutionsTotal.WithLabelValues("fallback").Inc()
	return domain.SynthesizeLocalUser(identity, role)
}
