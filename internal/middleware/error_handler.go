package middleware

import (
	"errors"
	"net/http"

	"github.com/jbs-labs/booking-service/internal/dto"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every uncaught error in the dto.ErrorResponse shape
// the rest of the API uses.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}

	_ = c.JSON(code, dto.ErrorResponse{Message: msg})
}
