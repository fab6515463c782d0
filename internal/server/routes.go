package server

import (
	"time"

	appmw "app/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func RegisterRoutes(e *echo.Echo, d Deps) {
	authMW := appmw.AuthJWT(d.Cfg, d.Tokens, d.Log)

	auth := e.Group("/auth")

	//公開エンドポイントはIP単位でレート制限
	auth.POST("/register", d.AuthH.Register, rateLimit(rate.Limit(3.0/3600.0), 3))
	auth.POST("/login", d.AuthH.Login, rateLimit(rate.Limit(5.0/900.0), 5))
	auth.POST("/refresh", d.AuthH.Refresh, rateLimit(rate.Limit(20.0/60.0), 20))
	auth.POST("/crm/signup", d.AuthH.Signup, rateLimit(rate.Limit(3.0/3600.0), 3))

	auth.POST("/logout", d.AuthH.Logout, authMW)
	auth.POST("/revoke-all", d.AuthH.RevokeAll, authMW)
	auth.GET("/me", d.AuthH.Me, authMW)

	//ドメイン管理はtenant:manage持ちだけ
	domains := e.Group("/tenant/domains", authMW, appmw.RequireCapability("tenant:manage"))
	domains.GET("", d.DomainH.List)
	domains.POST("", d.DomainH.Create)
	domains.POST("/:id/primary", d.DomainH.SetPrimary)
	domains.DELETE("/:id", d.DomainH.Delete)
}

// echo標準のRateLimiter（IPごと、in-memory）
func rateLimit(r rate.Limit, burst int) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      r,
			Burst:     burst,
			ExpiresIn: time.Hour,
		}),
	})
}
