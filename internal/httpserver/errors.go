package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/jam/internal/service"
)

const (
	msgMissingJSON     = "Missing JSON in request"
	msgMissingUsername = "Missing username parameter"
	msgMissingPassword = "Missing password parameter"
	msgBadCredentials  = "Invalid username or password."
	msgTooManyAttempts = "Too many failed login attempts. Try again later."
	msgTokenNotFound   = "The specified token was not found"
	msgMissingRevoke   = "Missing 'revoke' in body"
	msgRevokeNotBool   = "'revoke' must be a boolean"
	msgInternal        = "internal server error"
)

func msgError(code int, m string) *echo.HTTPError {
	return echo.NewHTTPError(code, echo.Map{"msg": m})
}

// errorFor maps service errors that are not gate failures onto HTTP responses.
func errorFor(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return msgError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return msgError(http.StatusBadRequest, msgBadCredentials)
	case errors.Is(err, service.ErrLoginRateLimited):
		return msgError(http.StatusTooManyRequests, msgTooManyAttempts)
	case errors.Is(err, service.ErrTokenNotFound):
		return msgError(http.StatusNotFound, msgTokenNotFound)
	default:
		return msgError(http.StatusInternalServerError, msgInternal)
	}
}
