package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/service"
)

// Chat runs one chat turn.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
	}

	resp, err := h.service.Chat(c.Request().Context(), req)
	if errors.Is(err, service.ErrEmptyQuery) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", jsonName(fe.Field()))
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", jsonName(fe.Field()), fe.Param())
		}
		return fmt.Sprintf("%s is invalid", jsonName(fe.Field()))
	}
	return err.Error()
}

func jsonName(field string) string {
	switch field {
	case "Query":
		return "query"
	case "SessionID":
		return "session_id"
	}
	return field
}
