package middleware

import (
	"errors"

	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const CtxResolvedTenantIDKey = "resolved_tenant_id" // int64

// TenantResolver はホスト名からテナントを引いてcontextに積む。
// 解決できなくてもリクエストは止めない（トークン無しの公開エンドポイントを
// 巻き込まないため。拒否するかどうかは後段のAuthJWTが決める）。
func TenantResolver(lookup repository.TenantDomainLookup, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hostname := usecase.NormalizeHostname(c.Request().Host)
			if hostname == "" {
				return next(c)
			}

			resolved, err := lookup.Resolve(c.Request().Context(), hostname)
			if err != nil {
				//未登録ドメインは正常系（素通し）
				if !errors.Is(err, repository.ErrDomainNotFound) {
					log.Warn("tenant domain lookup failed", zap.String("hostname", hostname), zap.Error(err))
				}
				return next(c)
			}

			//無効ドメインも何も積まずに素通し
			if resolved.IsActive {
				c.Set(CtxResolvedTenantIDKey, resolved.TenantID)
			}

			return next(c)
		}
	}
}
