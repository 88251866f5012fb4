package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/jam/internal/logging"
	"github.com/Skotchmaster/jam/internal/service"
	"github.com/Skotchmaster/jam/internal/tokens"
)

// GateAuth guards routes with the revocation gate.
type GateAuth struct {
	Gate *service.Gate
}

func NewGateAuth(g *service.Gate) *GateAuth {
	return &GateAuth{Gate: g}
}

func (m *GateAuth) RequireAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(tokens.Access)(next)
}

func (m *GateAuth) RequireRefresh(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(tokens.Refresh)(next)
}

func (m *GateAuth) require(want tokens.TokenType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("mw", "gate", "want", string(want))

			raw, err := BearerToken(c)
			if err != nil {
				if !m.Gate.Enforced() {
					return next(c)
				}
				l.Info("gate_denied", "error", err)
				return Deny(err, want)
			}

			claims, err := m.Gate.Check(ctx, raw, want)
			if err != nil {
				if !m.Gate.Enforced() {
					return next(c)
				}
				l.Info("gate_denied", "error", err)
				return Deny(err, want)
			}

			setUserContext(c, claims)
			return next(c)
		}
	}
}
