package service

import (
	"context"
	"strings"
	"time"

	"github.com/carrent/auth-engine/internal/api/metrics"
	"github.com/carrent/auth-engine/internal/core/domain"
)

// runSynchronizer consumes the auth-event queue. A single goroutine drains
// the channel, so event handling is fully serialized and every state write
// below happens in arrival order.
func (e *Engine) runSynchronizer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.events:
			if !ok {
				return
			}
			e.handleEvent(ctx, ev)
		}
	}
}

// handleEvent applies one auth event to the engine state. Three defenses
// break the feedback loop between the backend's redundant notifications and
// the resolver's own metadata write-backs: per-type skip rules, the debounce
// window, and the loop guard counter.
func (e *Engine) handleEvent(ctx context.Context, ev domain.AuthEvent) {
	now := ev.At
	if now.IsZero() {
		now = time.Now()
	}

	if !ev.Type.Known() {
		e.log.Warn().Str("type", string(ev.Type)).Msg("unknown auth event type rejected")
		metrics.AuthEventsSkippedTotal.WithLabelValues("unknown_type").Inc()
		return
	}

	// SIGNED_OUT is the one priority event: it bypasses both the loop guard
	// and the debounce window.
	priority := ev.Type == domain.EventSignedOut

	if !e.guard.allow(now) && !priority {
		e.log.Warn().Str("type", string(ev.Type)).Msg("auth event burst exceeded loop guard, dropping")
		metrics.AuthEventsDroppedTotal.Inc()
		return
	}

	switch ev.Type {
	case domain.EventSignedOut:
		e.clearAuthenticated()
		metrics.AuthEventsProcessedTotal.WithLabelValues(string(ev.Type)).Inc()
		e.log.Info().Msg("signed out by auth event")

	case domain.EventSignedIn:
		// The backend fires this redundantly right after Login already
		// performed the equivalent resolution synchronously; re-processing
		// would double the work and race the fresher state.
		e.forceLoadingCleared()
		metrics.AuthEventsSkippedTotal.WithLabelValues("signed_in").Inc()

	case domain.EventTokenRefreshed, domain.EventUserUpdated:
		// Session reference moves forward, profile does not: a slow or
		// erroring lookup here could clobber a correct in-memory role with
		// a lower-precedence fallback value mid-session.
		if ev.Session != nil {
			e.replaceSession(ev.Session)
		}
		e.setLoading(false)
		metrics.AuthEventsSkippedTotal.WithLabelValues("session_only").Inc()

	default:
		e.handleResolutionEvent(ctx, ev, now)
	}
}

// handleResolutionEvent covers the event types that warrant a full profile
// re-resolution (INITIAL today).
func (e *Engine) handleResolutionEvent(ctx context.Context, ev domain.AuthEvent, now time.Time) {
	identity := ev.Identity()
	if identity == nil {
		e.clearUser()
		metrics.AuthEventsSkippedTotal.WithLabelValues("no_identity").Inc()
		return
	}

	if now.Sub(e.lastProcessed) < e.cfg.DebounceWindow {
		e.setLoading(false)
		metrics.AuthEventsSkippedTotal.WithLabelValues("debounced").Inc()
		return
	}
	e.lastProcessed = now

	cur := e.currentUser()
	isRefresh := cur != nil && strings.EqualFold(cur.Email, identity.Email)

	e.replaceSession(ev.Session)
	gen := e.currentGeneration()

	user := e.resolveProfile(ctx, identity, isRefresh)
	if !e.setUserIfCurrent(gen, user) {
		e.log.Debug().Str("email", identity.Email).Msg("stale profile resolution discarded")
	}
	e.setLoading(false)
	metrics.AuthEventsProcessedTotal.WithLabelValues(string(ev.Type)).Inc()
}
