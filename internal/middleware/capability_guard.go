package middleware

import (
	"net/http"

	"app/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// ロールごとの静的なcapability表。
// ルート側はRequireCapabilityで必要な権限を宣言する。
var roleCapabilities = map[model.Role]map[string]struct{}{
	model.RoleOwner: {
		"tenant:manage":    {},
		"auth:revoke-all":  {},
		"sessions:inspect": {},
	},
	model.RoleAdmin: {
		"tenant:manage":    {},
		"sessions:inspect": {},
	},
	model.RoleUser: {},
}

// HasCapability はロールがcapabilityを持つか。
func HasCapability(role model.Role, capability string) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}

// RequireCapability はAuthJWTの後段で権限を確認する。
func RequireCapability(capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if !HasCapability(model.Role(role), capability) {
				return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
			}

			return next(c)
		}
	}
}
