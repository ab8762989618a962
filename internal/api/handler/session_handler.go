package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carrent/auth-engine/internal/core/ports"
)

// SessionHandler serves the engine's state snapshot and the signed-in user's
// profile operations.
type SessionHandler struct {
	engine ports.AuthEngine
}

func NewSessionHandler(engine ports.AuthEngine) *SessionHandler {
	return &SessionHandler{engine: engine}
}

// Snapshot returns the current auth-state tuple.
//
// @Summary      Current session snapshot
// @Tags         session
// @Produce      json
// @Success      200  {object}  snapshotResponse
// @Router       /session [get]
func (h *SessionHandler) Snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, toSnapshotResponse(h.engine.Snapshot()))
}

// UpdateMe applies a partial profile update to the signed-in user.
//
// @Summary      Update the signed-in user's profile
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      updateUserRequest  true  "Fields to update"
// @Success      200   {object}  domain.LocalUser
// @Failure      401   {object}  errorResponse
// @Router       /me [patch]
func (h *SessionHandler) UpdateMe(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, failure := h.engine.UpdateUser(c.Request().Context(), ports.UpdateUserInput{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		AvatarURL:   req.AvatarURL,
	})
	if failure != nil {
		return c.JSON(failureStatus(failure), authResponse{Failure: failure})
	}
	return c.JSON(http.StatusOK, user)
}

// AdminCheck re-verifies the current user's admin standing against the
// profile store.
//
// @Summary      Verify admin standing
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /me/admin [get]
func (h *SessionHandler) AdminCheck(c echo.Context) error {
	isAdmin := h.engine.IsAdminUser(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"is_admin": isAdmin})
}

// ClearRoleCache drops every cached role entry. Debug/admin only.
//
// @Summary      Clear the role cache
// @Tags         debug
// @Produce      json
// @Success      204
// @Router       /debug/role-cache [delete]
func (h *SessionHandler) ClearRoleCache(c echo.Context) error {
	if err := h.engine.ClearRoleCache(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
