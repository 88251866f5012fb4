package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/jam/internal/logging"
	authmw "github.com/Skotchmaster/jam/internal/middleware/auth"
	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/service"
	"github.com/Skotchmaster/jam/internal/tokens"
	"github.com/Skotchmaster/jam/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	req, herr := bindCredentials(c)
	if herr != nil {
		l.Warn("register_error", "status", herr.Code)
		return herr
	}

	if err := h.Svc.Register(ctx, req.Username, req.Password); err != nil {
		if errors.Is(err, service.ErrConflict) {
			return c.JSON(http.StatusAccepted, transport.StatusResponse{
				Status:  "fail",
				Message: "User already exists. Please Log in.",
			})
		}
		l.Error("register_error", "status", 500, "error", err)
		return errorFor(err)
	}

	return c.JSON(http.StatusCreated, transport.StatusResponse{
		Status:  "success",
		Message: "Successfully registered.",
	})
}

func (h *AuthHTTP) Token(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_token")

	req, herr := bindCredentials(c)
	if herr != nil {
		l.Warn("token_error", "status", herr.Code)
		return herr
	}

	res, err := h.Svc.Issue(ctx, req.Username, req.Password)
	if err != nil {
		herr := errorFor(err)
		l.Warn("token_failed", "status", herr.Code, "error", err)
		return herr
	}

	return c.JSON(http.StatusOK, transport.TokenPairResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *AuthHTTP) ListTokens(c echo.Context) error {
	ctx := c.Request().Context()

	list, err := h.Svc.ListTokens(ctx, authmw.Identity(c))
	if err != nil {
		return errorFor(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	raw, err := authmw.BearerToken(c)
	if err != nil {
		return authmw.Deny(err, tokens.Refresh)
	}

	res, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		herr := authmw.Deny(err, tokens.Refresh)
		l.Warn("refresh_failed", "status", herr.Code, "error", err)
		return herr
	}

	return c.JSON(http.StatusOK, transport.AccessTokenResponse{AccessToken: res.AccessToken})
}

func (h *AuthHTTP) UpdateToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_update_token")

	id, err := strconv.ParseUint(c.Param("token_id"), 10, 64)
	if err != nil {
		return msgError(http.StatusBadRequest, "token_id must be a positive integer")
	}

	var req transport.RevokeRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return msgError(http.StatusBadRequest, msgMissingRevoke)
	}
	revoke, ok := req.Revoke.(bool)
	if req.Revoke == nil {
		return msgError(http.StatusBadRequest, msgMissingRevoke)
	}
	if !ok {
		return msgError(http.StatusBadRequest, msgRevokeNotBool)
	}

	sel := repo.ByID(uint(id), authmw.Identity(c))
	if revoke {
		err = h.Svc.Revoke(ctx, sel)
	} else {
		err = h.Svc.Unrevoke(ctx, sel)
	}
	if err != nil {
		herr := errorFor(err)
		l.Info("update_token_failed", "status", herr.Code, "token_id", id, "error", err)
		return herr
	}

	if revoke {
		return c.JSON(http.StatusOK, transport.MsgResponse{Msg: "Token revoked"})
	}
	return c.JSON(http.StatusOK, transport.MsgResponse{Msg: "Token unrevoked"})
}

func (h *AuthHTTP) LogoutAccess(c echo.Context) error {
	return h.logout(c, "Access token revoked.")
}

func (h *AuthHTTP) LogoutRefresh(c echo.Context) error {
	return h.logout(c, "Refresh token revoked.")
}

func (h *AuthHTTP) logout(c echo.Context, done string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	claims := authmw.Claims(c)
	if claims == nil {
		return msgError(http.StatusNotFound, msgTokenNotFound)
	}
	if err := h.Svc.Logout(ctx, claims); err != nil {
		herr := errorFor(err)
		l.Warn("logout_failed", "status", herr.Code, "error", err)
		return herr
	}

	l.Info("successful_logout", "jti", claims.JTI())
	return c.JSON(http.StatusOK, transport.MsgResponse{Msg: done})
}

func bindCredentials(c echo.Context) (*transport.CredentialsRequest, *echo.HTTPError) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
		return nil, msgError(http.StatusBadRequest, msgMissingJSON)
	}

	var req transport.CredentialsRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return nil, msgError(http.StatusBadRequest, msgMissingJSON)
	}
	if req.Username == "" {
		return nil, msgError(http.StatusBadRequest, msgMissingUsername)
	}
	if req.Password == "" {
		return nil, msgError(http.StatusBadRequest, msgMissingPassword)
	}
	return &req, nil
}
