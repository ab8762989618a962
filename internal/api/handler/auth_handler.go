package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

// AuthHandler exposes the engine's auth operations to the device UI.
type AuthHandler struct {
	engine ports.AuthEngine
}

func NewAuthHandler(engine ports.AuthEngine) *AuthHandler {
	return &AuthHandler{engine: engine}
}

// Login exchanges credentials for a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  authResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result := h.engine.Login(c.Request().Context(), req.Email, req.Password)
	if !result.OK() {
		return c.JSON(failureStatus(result.Failure), authResponse{Failure: result.Failure})
	}
	return c.JSON(http.StatusOK, authResponse{
		User:    result.User,
		Session: toSessionResponse(result.Session),
	})
}

// Register creates a new account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      409   {object}  authResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result := h.engine.Register(c.Request().Context(), ports.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	})
	if !result.OK() {
		return c.JSON(failureStatus(result.Failure), authResponse{Failure: result.Failure})
	}
	return c.JSON(http.StatusCreated, authResponse{
		User:                result.User,
		Session:             toSessionResponse(result.Session),
		PendingConfirmation: result.PendingConfirmation,
	})
}

// Logout signs the current session out. Always 204: logout cannot fail from
// the caller's perspective.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.engine.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// failureStatus maps a failure kind to its HTTP status.
func failureStatus(f *domain.AuthFailure) int {
	switch f.Kind {
	case domain.FailEmailAlreadyExists:
		return http.StatusConflict
	case domain.FailInvalidCredentials, domain.FailAccountNotConfirmed:
		return http.StatusUnauthorized
	case domain.FailWeakPassword, domain.FailInvalidEmailFormat:
		return http.StatusUnprocessableEntity
	case domain.FailTooManyRequests:
		return http.StatusTooManyRequests
	case domain.FailNetworkError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
