package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

const eventQueueBuffer = 256

// Config holds the engine's timing knobs. Zero values fall back to the
// defaults below.
type Config struct {
	BootstrapTimeout     time.Duration // global safety deadline for startup bootstrap
	DebounceWindow       time.Duration // minimum spacing between fully processed events
	LoopGuardWindow      time.Duration // sliding window for the feedback-loop guard
	LoopGuardMaxEvents   int           // events allowed per loop-guard window
	ProfileLookupTimeout time.Duration // primary profile-store lookup bound
	RoleLookupTimeout    time.Duration // per-strategy role lookup bound
	SignOutTimeout       time.Duration // remote sign-out bound during logout
	ProfileCreateTimeout time.Duration // profile insert bound during register
	// AdminEmail seeds the bootstrap admin account when the profile store is
	// unreachable. Empty disables the heuristic tier entirely.
	AdminEmail string
}

func (c Config) withDefaults() Config {
	if c.BootstrapTimeout <= 0 {
		c.BootstrapTimeout = 5 * time.Second
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 3 * time.Second
	}
	if c.LoopGuardWindow <= 0 {
		c.LoopGuardWindow = 10 * time.Second
	}
	if c.LoopGuardMaxEvents <= 0 {
		c.LoopGuardMaxEvents = 10
	}
	if c.ProfileLookupTimeout <= 0 {
		c.ProfileLookupTimeout = 500 * time.Millisecond
	}
	if c.RoleLookupTimeout <= 0 {
		c.RoleLookupTimeout = 2 * time.Second
	}
	if c.SignOutTimeout <= 0 {
		c.SignOutTimeout = 2 * time.Second
	}
	if c.ProfileCreateTimeout <= 0 {
		c.ProfileCreateTimeout = 2 * time.Second
	}
	return c
}

// Engine owns the session/user state and serializes every transition.
// Consumers read immutable snapshots; the event synchronizer, the
// bootstrapper and the auth operations are the only writers, and all of them
// go through the mutex-guarded setters here.
type Engine struct {
	cfg      Config
	provider ports.IdentityProvider
	profiles ports.ProfileRepository
	roles    ports.RoleCache
	warmer   ports.VehicleCacheWarmer
	log      zerolog.Logger

	mu               sync.Mutex
	session          *domain.Session
	user             *domain.LocalUser
	isLoading        bool
	operationLoading bool
	// generation increments whenever the signed-in principal changes. A
	// raced network call captures the generation at launch and its result is
	// discarded if the generation moved on, so an abandoned loser can never
	// overwrite newer state.
	generation uint64

	guard         *loopGuard
	lastProcessed time.Time // last fully processed non-priority event

	events        chan domain.AuthEvent
	unsubscribe   func()
	bootstrapOnce sync.Once
}

// NewEngine builds an Engine. The engine starts in the loading state; call
// Start to subscribe to auth events and run the bootstrap.
func NewEngine(
	cfg Config,
	provider ports.IdentityProvider,
	profiles ports.ProfileRepository,
	roles ports.RoleCache,
	warmer ports.VehicleCacheWarmer,
	log zerolog.Logger,
) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:       cfg,
		provider:  provider,
		profiles:  profiles,
		roles:     roles,
		warmer:    warmer,
		log:       log,
		isLoading: true,
		guard:     newLoopGuard(cfg.LoopGuardWindow, cfg.LoopGuardMaxEvents),
		events:    make(chan domain.AuthEvent, eventQueueBuffer),
	}
}

// Start subscribes to the provider's auth-event stream, launches the
// synchronizer goroutine and runs the one-time session bootstrap. It returns
// once bootstrap has finished or the safety deadline forced the loading
// flags clear.
func (e *Engine) Start(ctx context.Context) {
	e.unsubscribe = e.provider.SubscribeAuthEvents(func(ev domain.AuthEvent) {
		select {
		case e.events <- ev:
		default:
			e.log.Warn().Str("type", string(ev.Type)).Msg("auth event queue full, event discarded")
		}
	})
	go e.runSynchronizer(ctx)
	e.Bootstrap(ctx)
}

// Close cancels the event subscription.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// Snapshot returns a fully-formed copy of the current state tuple.
func (e *Engine) Snapshot() ports.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ports.Snapshot{
		Session:          e.session,
		User:             e.user,
		IsLoading:        e.isLoading,
		OperationLoading: e.operationLoading,
		// Derived from the session alone: profile resolution can lag or fail
		// while the session itself is valid.
		IsAuthenticated: e.session != nil,
	}
}

// currentGeneration returns the generation fence value for an async call
// launched now, together with the state it may compare against.
func (e *Engine) currentGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// setAuthenticated replaces the session/user pair wholesale and bumps the
// generation when the signed-in principal changed.
func (e *Engine) setAuthenticated(session *domain.Session, user *domain.LocalUser) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if principalChanged(e.session, session) {
		e.generation++
	}
	e.session = session
	e.user = user
}

// setUserIfCurrent applies a late-arriving resolved user only when the
// generation fence still matches.
func (e *Engine) setUserIfCurrent(gen uint64, user *domain.LocalUser) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		return false
	}
	e.user = user
	return true
}

// replaceSession moves the session reference forward without touching the
// resolved user. Clears isLoading so a session-only event never leaves the
// UI blocked.
func (e *Engine) replaceSession(session *domain.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if principalChanged(e.session, session) {
		e.generation++
	}
	e.session = session
	e.isLoading = false
}

// clearUser drops the resolved user for events that carry no identity.
func (e *Engine) clearUser() {
	e.mu.Lock()
	e.user = nil
	e.isLoading = false
	e.mu.Unlock()
}

// clearAuthenticated drops session and user and clears both loading flags.
func (e *Engine) clearAuthenticated() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.generation++
	}
	e.session = nil
	e.user = nil
	e.isLoading = false
	e.operationLoading = false
}

func (e *Engine) setLoading(v bool) {
	e.mu.Lock()
	e.isLoading = v
	e.mu.Unlock()
}

func (e *Engine) setOperationLoading(v bool) {
	e.mu.Lock()
	e.operationLoading = v
	e.mu.Unlock()
}

// forceLoadingCleared is the safety-timer hammer: it unblocks the UI without
// touching the in-flight bootstrap.
func (e *Engine) forceLoadingCleared() {
	e.mu.Lock()
	e.isLoading = false
	e.operationLoading = false
	e.mu.Unlock()
}

func (e *Engine) currentUser() *domain.LocalUser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user
}

func (e *Engine) currentSession() *domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func principalChanged(old, next *domain.Session) bool {
	switch {
	case old == nil && next == nil:
		return false
	case old == nil || next == nil:
		return true
	case old.Identity == nil || next.Identity == nil:
		return old.Identity != next.Identity
	default:
		return old.Identity.ID != next.Identity.ID
	}
}
