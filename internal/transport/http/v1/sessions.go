package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListSessions lists sessions by last activity, newest first.
// GET /sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetMessages replays the messages of a session.
// GET /messages/:session_id
func (h *Handler) GetMessages(c echo.Context) error {
	sessionID := c.Param("session_id")
	messages, err := h.service.GetMessages(c.Request().Context(), sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, messages)
}

// GetToolCalls lists the tool calls of a session.
// GET /sessions/:session_id/tool_calls
func (h *Handler) GetToolCalls(c echo.Context) error {
	sessionID := c.Param("session_id")
	calls, err := h.service.GetToolCalls(c.Request().Context(), sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, calls)
}
