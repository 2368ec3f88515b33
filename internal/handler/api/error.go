package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anbanon/verdana/internal/domain"
)

// errorResponse is the JSON error envelope for every API failure.
type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusForCode maps domain error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ELIMIT:
		return http.StatusUnprocessableEntity
	case domain.ECHECKOUT:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError converts a core error into the JSON envelope. Internal errors
// are logged with their cause and surfaced with a generic message.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	if fields := domain.GetValidationFields(err); fields != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:  "Validation failed",
			Code:   domain.EINVALID,
			Fields: fields,
		})
	}

	code := domain.ErrorCode(err)
	if code == domain.EINTERNAL {
		logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}
	return c.JSON(statusForCode(code), errorResponse{
		Error: domain.ErrorMessage(err),
		Code:  code,
	})
}
