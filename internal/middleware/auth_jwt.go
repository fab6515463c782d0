package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	CtxUserIDKey        = "user_id"         // int64
	CtxTenantIDKey      = "tenant_id"       // int64
	CtxUserRoleKey      = "user_role"       // string
	CtxAccessTokenIDKey = "access_token_id" // string (JTI)
)

// JTIの生存確認だけをTokenServiceから借りる約束
type TokenLiveness interface {
	IsActive(ctx context.Context, accessTokenID string) bool
}

// bearerAuth用のJWT検証ミドルウェア。
// 署名・期限（stateless）→JTI生存（Session Store）→テナント照合の順で落とす。
func AuthJWT(cfg config.Config, tokens TokenLiveness, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//claimsを取り出す
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			userID, err := parseInt64(claims["sub"])
			if err != nil || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			tenantID, err := parseInt64(claims["tid"])
			if err != nil || tenantID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//roleを取り出す（OWNER/ADMIN/USER）
			role, err := parseString(claims["role"])
			if err != nil || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			jti, err := parseString(claims["jti"])
			if err != nil || jti == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Session Store照合。署名が有効でもrevoke済みなら通さない。
			if !tokens.IsActive(c.Request().Context(), jti) {
				return c.JSON(http.StatusUnauthorized, errorJSON("Token has been revoked"))
			}

			//ドメイン解決済みテナントとトークンのテナントの食い違いを弾く。
			//別テナントのホスト名に向けたトークン再生を防ぐ。
			if rawResolved := c.Get(CtxResolvedTenantIDKey); rawResolved != nil {
				resolvedTenantID, ok := rawResolved.(int64)
				if ok && resolvedTenantID != tenantID {
					log.Warn("cross-tenant token rejected",
						zap.Int64("token_tenant_id", tenantID),
						zap.Int64("resolved_tenant_id", resolvedTenantID),
						zap.Int64("user_id", userID))
					return c.JSON(http.StatusUnauthorized, errorJSON("cross-tenant access denied"))
				}
			}

			//contextへ保存
			c.Set(CtxUserIDKey, userID)
			c.Set(CtxTenantIDKey, tenantID)
			c.Set(CtxUserRoleKey, role)
			c.Set(CtxAccessTokenIDKey, jti)

			return next(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// claimをint64に変換する
func parseInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid number claim")
	}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}
