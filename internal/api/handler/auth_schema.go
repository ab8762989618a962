package handler

import (
	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=6"`
	FullName    string `json:"full_name"    validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=7"`
}

type updateUserRequest struct {
	FullName    *string `json:"full_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// authResponse is the envelope for login/register outcomes. Failure carries
// the taxonomy kind the UI maps to a localized message.
type authResponse struct {
	User                *domain.LocalUser   `json:"user,omitempty"`
	Session             *sessionResponse    `json:"session,omitempty"`
	PendingConfirmation bool                `json:"pending_confirmation,omitempty"`
	Failure             *domain.AuthFailure `json:"failure,omitempty"`
}

type sessionResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type snapshotResponse struct {
	Session          *sessionResponse  `json:"session"`
	User             *domain.LocalUser `json:"user"`
	IsLoading        bool              `json:"is_loading"`
	OperationLoading bool              `json:"operation_loading"`
	IsAuthenticated  bool              `json:"is_authenticated"`
}

func toSessionResponse(s *domain.Session) *sessionResponse {
	if s == nil {
		return nil
	}
	return &sessionResponse{
		AccessToken: s.AccessToken,
		ExpiresAt:   s.ExpiresAt.Unix(),
	}
}

func toSnapshotResponse(s ports.Snapshot) snapshotResponse {
	return snapshotResponse{
		Session:          toSessionResponse(s.Session),
		User:             s.User,
		IsLoading:        s.IsLoading,
		OperationLoading: s.OperationLoading,
		IsAuthenticated:  s.IsAuthenticated,
	}
}
