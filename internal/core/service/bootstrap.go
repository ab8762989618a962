package service

import (
	"context"
	"time"

	"github.com/carrent/auth-engine/internal/api/metrics"
	"github.com/carrent/auth-engine/internal/core/domain"
)

// Bootstrap establishes the initial session state. It runs exactly once per
// process lifetime; later calls are no-ops.
//
// A safety timer runs alongside the bootstrap: if the network hangs past the
// configured deadline the loading flags are forced clear so the UI is never
// blocked indefinitely. The timer does not abort the in-flight work — a late
// completion still lands, fenced by the generation counter.
func (e *Engine) Bootstrap(ctx context.Context) {
	e.bootstrapOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			timer := time.NewTimer(e.cfg.BootstrapTimeout)
			defer timer.Stop()
			select {
			case <-done:
			case <-timer.C:
				e.log.Warn().Dur("deadline", e.cfg.BootstrapTimeout).
					Msg("bootstrap safety deadline hit, unblocking UI")
				e.forceLoadingCleared()
			case <-ctx.Done():
			}
		}()

		e.bootstrap(ctx)
		close(done)
	})
}

func (e *Engine) bootstrap(ctx context.Context) {
	start := time.Now()
	defer func() {
		e.setLoading(false)
		metrics.BootstrapDuration.Observe(time.Since(start).Seconds())
	}()

	// 1. Silent refresh. A failed refresh means the stored token is expired
	// or invalid: sign out locally and remotely to clear the inconsistent
	// state, and swallow the error.
	if _, err := e.provider.RefreshSession(ctx); err != nil {
		e.log.Info().Err(err).Msg("silent session refresh failed, clearing stale auth state")
		if soErr := e.provider.SignOut(ctx); soErr != nil {
			e.log.Debug().Err(soErr).Msg("remote sign-out during bootstrap cleanup failed")
		}
		e.clearAuthenticated()
	}

	// 2. Load whatever session survived the refresh attempt.
	session, err := e.provider.GetSession(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("session load failed, starting unauthenticated")
		e.clearAuthenticated()
		return
	}
	if session == nil || session.Identity == nil {
		e.clearAuthenticated()
		return
	}

	// 3. Resolve the profile. resolveProfile degrades internally, but guard
	// the synthesized minimum here too so user is never left nil for a
	// valid session.
	user := e.resolveProfile(ctx, session.Identity, false)
	if user == nil {
		role := e.resolveRole(ctx, session.Identity, false, nil)
		user = domain.SynthesizeLocalUser(session.Identity, role)
	}
	e.setAuthenticated(session, user)
	e.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("session restored")
}
