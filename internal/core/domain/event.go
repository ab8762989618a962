package domain

import "time"

// EventType identifies an auth-state change emitted by the identity backend.
// The payload shape is closed: anything outside this set is logged and
// rejected by the synchronizer rather than guessed at.
type EventType string

const (
	EventInitial        EventType = "INITIAL"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Known reports whether t is part of the closed event-type set.
func (t EventType) Known() bool {
	switch t {
	case EventInitial, EventSignedIn, EventSignedOut, EventTokenRefreshed, EventUserUpdated:
		return true
	}
	return false
}

// AuthEvent is a single notification from the identity backend's event
// stream. Session (and its embedded identity) is nil for SIGNED_OUT and for
// events that carry no principal.
type AuthEvent struct {
	Type    EventType
	Session *Session
	At      time.Time
}

// Identity returns the identity record carried by the event, if any.
func (e AuthEvent) Identity() *IdentityRecord {
	if e.Session == nil {
		return nil
	}
	return e.Session.Identity
}
