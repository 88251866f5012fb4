package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Skotchmaster/jam/internal/db"
	authmw "github.com/Skotchmaster/jam/internal/middleware/auth"
)

type Deps struct {
	DB          *gorm.DB
	AuthHandler *AuthHTTP
	GateAuth    *authmw.GateAuth
	APIPrefix   string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group(d.APIPrefix)

	api.POST("/auth/register", d.AuthHandler.Register)
	api.POST("/auth/token", d.AuthHandler.Token)
	api.POST("/auth/refresh", d.AuthHandler.Refresh)

	private := api.Group("")
	private.GET("/auth/token", d.AuthHandler.ListTokens, d.GateAuth.RequireAccess)
	private.PUT("/auth/token/:token_id", d.AuthHandler.UpdateToken, d.GateAuth.RequireAccess)
	private.POST("/auth/logout/access", d.AuthHandler.LogoutAccess, d.GateAuth.RequireAccess)
	private.POST("/auth/logout/refresh", d.AuthHandler.LogoutRefresh, d.GateAuth.RequireRefresh)
}
