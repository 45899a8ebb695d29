package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListTools returns the tool catalog offered to the model.
// GET /tools
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Tools())
}
