package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/jam/internal/service"
	"github.com/Skotchmaster/jam/internal/tokens"
)

const (
	ContextIdentity = "identity"
	ContextClaims   = "claims"
)

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrBadHeader    = errors.New("bad authorization header")
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c echo.Context) (string, error) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrBadHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.Contains(token, " ") {
		return "", ErrBadHeader
	}
	return token, nil
}

// Deny turns a gate failure into the response sent to the client.
// Absent, expired and revoked tokens are 401; tokens that cannot be used at all are 422.
func Deny(err error, want tokens.TokenType) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrMissingToken):
		return msg(http.StatusUnauthorized, "Missing Authorization Header")
	case errors.Is(err, ErrBadHeader):
		return msg(http.StatusUnprocessableEntity, "Bad Authorization header. Expected value 'Bearer <JWT>'")
	case errors.Is(err, service.ErrTokenExpired):
		return msg(http.StatusUnauthorized, "Token has expired")
	case errors.Is(err, service.ErrTokenRevoked):
		return msg(http.StatusUnauthorized, "Token has been revoked")
	case errors.Is(err, service.ErrSignatureInvalid):
		return msg(http.StatusUnprocessableEntity, "Signature verification failed")
	case errors.Is(err, service.ErrWrongTokenType):
		return msg(http.StatusUnprocessableEntity, "Only "+string(want)+" tokens are allowed")
	case errors.Is(err, service.ErrMalformed):
		return msg(http.StatusUnprocessableEntity, "Invalid token")
	default:
		return msg(http.StatusInternalServerError, "internal server error")
	}
}

func msg(code int, m string) *echo.HTTPError {
	return echo.NewHTTPError(code, echo.Map{"msg": m})
}

func setUserContext(c echo.Context, claims *tokens.Claims) {
	c.Set(ContextIdentity, claims.Identity())
	c.Set(ContextClaims, claims)
}

// Identity returns the verified identity, or "" when the gate let the request through without one.
func Identity(c echo.Context) string {
	id, _ := c.Get(ContextIdentity).(string)
	return id
}

func Claims(c echo.Context) *tokens.Claims {
	claims, _ := c.Get(ContextClaims).(*tokens.Claims)
	return claims
}
