package server

import (
	"app/internal/config"
	"app/internal/handler"
	appmw "app/internal/middleware"
	"app/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// New が受け取る部品一式
type Deps struct {
	Cfg     config.Config
	Log     *zap.Logger
	AuthH   *handler.AuthHandler
	DomainH *handler.TenantDomainHandler
	Lookup  repository.TenantDomainLookup
	Tokens  appmw.TokenLiveness
}

// New はechoを組み立てる。
// TenantResolverは全ルートの前段（トークン検証より先にホスト名を解決する）。
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(appmw.TenantResolver(d.Lookup, d.Log))

	RegisterRoutes(e, d)

	return e
}
