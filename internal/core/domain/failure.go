package domain

import (
	"context"
	"errors"
	"strings"
)

// FailureKind is the stable key surfaced to the UI for a failed auth
// operation. The UI maps kinds to localized messages; raw backend error text
// is only ever a secondary detail.
type FailureKind string

const (
	FailEmailAlreadyExists  FailureKind = "EmailAlreadyExists"
	FailInvalidCredentials  FailureKind = "InvalidCredentials"
	FailAccountNotConfirmed FailureKind = "AccountNotConfirmed"
	FailWeakPassword        FailureKind = "WeakPassword"
	FailInvalidEmailFormat  FailureKind = "InvalidEmailFormat"
	FailTooManyRequests     FailureKind = "TooManyRequests"
	FailNetworkError        FailureKind = "NetworkError"
	FailUnknown             FailureKind = "UnknownError"
)

// AuthFailure is the typed failure returned by Login and Register. It
// satisfies error so it can flow through the usual channels, but callers
// branch on Kind, never on the message.
type AuthFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *AuthFailure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// ClassifyAuthError maps a raw backend error into the failure taxonomy by
// matching sentinel errors first and message patterns second.
func ClassifyAuthError(err error) *AuthFailure {
	switch {
	case errors.Is(err, ErrUserExists):
		return &AuthFailure{Kind: FailEmailAlreadyExists, Message: "an account with this email already exists"}
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return &AuthFailure{Kind: FailInvalidCredentials, Message: "email or password is incorrect"}
	case errors.Is(err, ErrAccountNotConfirmed):
		return &AuthFailure{Kind: FailAccountNotConfirmed, Message: "account has not been confirmed yet"}
	case errors.Is(err, context.DeadlineExceeded):
		return &AuthFailure{Kind: FailNetworkError, Message: "the request timed out"}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already exists"), strings.Contains(msg, "duplicate"):
		return &AuthFailure{Kind: FailEmailAlreadyExists, Message: "an account with this email already exists"}
	case strings.Contains(msg, "invalid login"), strings.Contains(msg, "invalid credentials"), strings.Contains(msg, "wrong password"):
		return &AuthFailure{Kind: FailInvalidCredentials, Message: "email or password is incorrect"}
	case strings.Contains(msg, "not confirmed"), strings.Contains(msg, "confirm your email"):
		return &AuthFailure{Kind: FailAccountNotConfirmed, Message: "account has not been confirmed yet"}
	case strings.Contains(msg, "weak password"), strings.Contains(msg, "at least 6 characters"):
		return &AuthFailure{Kind: FailWeakPassword, Message: "password does not meet the minimum requirements"}
	case strings.Contains(msg, "invalid email"), strings.Contains(msg, "unable to validate email"):
		return &AuthFailure{Kind: FailInvalidEmailFormat, Message: "email address is not valid"}
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "rate limit"):
		return &AuthFailure{Kind: FailTooManyRequests, Message: "too many attempts, try again later"}
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"),
		strings.Contains(msg, "no such host"):
		return &AuthFailure{Kind: FailNetworkError, Message: "could not reach the authentication service"}
	}

	return &AuthFailure{Kind: FailUnknown, Message: "something went wrong, try again"}
}
