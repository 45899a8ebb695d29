// Package v1 provides the HTTP handlers of the library desk assistant.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/librarydesk/internal/config"
	"github.com/xiaot623/librarydesk/internal/hub"
	"github.com/xiaot623/librarydesk/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	hub     *hub.Hub
	config  *config.Config
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, h *hub.Hub, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		hub:     h,
		config:  cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/health", h.Health)

	// Chat API
	e.POST("/chat", h.Chat)

	// Session log API
	e.GET("/sessions", h.ListSessions)
	e.GET("/messages/:session_id", h.GetMessages)
	e.GET("/sessions/:session_id/tool_calls", h.GetToolCalls)

	// Tool catalog
	e.GET("/tools", h.ListTools)

	// Live session feed
	e.GET("/ws/:session_id", h.Subscribe)
}

// Index returns the application name and version.
func (h *Handler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"app_name":    h.config.AppName,
		"app_version": h.config.AppVersion,
	})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	if err := h.service.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
