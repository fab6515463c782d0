package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"app/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// =====================
// Fake: TokenLiveness
// =====================

type fakeTokenLiveness struct {
	active map[string]bool
}

func (f *fakeTokenLiveness) IsActive(ctx context.Context, accessTokenID string) bool {
	return f.active[accessTokenID]
}

// =====================
// Helper
// =====================

type gateOKResponse struct {
	UserID   int64  `json:"user_id"`
	TenantID int64  `json:"tenant_id"`
	Role     string `json:"role"`
	JTI      string `json:"jti"`
}

type gateErrorResponse struct {
	Error string `json:"error"`
}

const testSecret = "test-secret"

func testCfg() config.Config {
	return config.Config{JWTSecret: testSecret}
}

func mustMakeAccessToken(t *testing.T, secret string, sub int64, tenantID int64, role string, jti string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  sub,
		"tid":  tenantID,
		"role": role,
		"jti":  jti,
		"iat":  1,
		"exp":  9999999999,
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

// AuthJWT通過後のcontextをそのまま返すハンドラでechoを組む
func newGateEcho(tokens TokenLiveness, resolvedTenantID *int64) *echo.Echo {
	e := echo.New()

	//TenantResolver相当（テストでは直接積む）
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if resolvedTenantID != nil {
				c.Set(CtxResolvedTenantIDKey, *resolvedTenantID)
			}
			return next(c)
		}
	})

	e.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, gateOKResponse{
			UserID:   c.Get(CtxUserIDKey).(int64),
			TenantID: c.Get(CtxTenantIDKey).(int64),
			Role:     c.Get(CtxUserRoleKey).(string),
			JTI:      c.Get(CtxAccessTokenIDKey).(string),
		})
	}, AuthJWT(testCfg(), tokens, zap.NewNop()))

	return e
}

func runGateRequest(t *testing.T, e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeGateError(t *testing.T, rec *httptest.ResponseRecorder) gateErrorResponse {
	t.Helper()
	var r gateErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

// =====================
// Tests
// =====================

func TestAuthJWT_MissingHeader(t *testing.T) {
	e := newGateEcho(&fakeTokenLiveness{}, nil)

	rec := runGateRequest(t, e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_BadSignature(t *testing.T) {
	e := newGateEcho(&fakeTokenLiveness{}, nil)

	token := mustMakeAccessToken(t, "other-secret", 42, 1, "USER", "jti-1")
	rec := runGateRequest(t, e, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_ValidTokenPasses(t *testing.T) {
	tokens := &fakeTokenLiveness{active: map[string]bool{"jti-1": true}}
	e := newGateEcho(tokens, nil)

	token := mustMakeAccessToken(t, testSecret, 42, 1, "USER", "jti-1")
	rec := runGateRequest(t, e, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)

	var ok gateOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&ok)
	assert.Equal(t, int64(42), ok.UserID)
	assert.Equal(t, int64(1), ok.TenantID)
	assert.Equal(t, "USER", ok.Role)
	assert.Equal(t, "jti-1", ok.JTI)
}

// 署名が有効でもrevoke済みJTIは通さない
func TestAuthJWT_RevokedJTI(t *testing.T) {
	tokens := &fakeTokenLiveness{active: map[string]bool{}}
	e := newGateEcho(tokens, nil)

	token := mustMakeAccessToken(t, testSecret, 42, 1, "USER", "jti-revoked")
	rec := runGateRequest(t, e, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", decodeGateError(t, rec).Error)
}

// ホスト名で解決したテナントとトークンのテナントが食い違えば拒否
func TestAuthJWT_CrossTenantRejected(t *testing.T) {
	tokens := &fakeTokenLiveness{active: map[string]bool{"jti-1": true}}
	resolved := int64(2)
	e := newGateEcho(tokens, &resolved)

	//トークンはtenant=1で正規に発行されたもの
	token := mustMakeAccessToken(t, testSecret, 42, 1, "USER", "jti-1")
	rec := runGateRequest(t, e, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "cross-tenant access denied", decodeGateError(t, rec).Error)
}

func TestAuthJWT_MatchingTenantPasses(t *testing.T) {
	tokens := &fakeTokenLiveness{active: map[string]bool{"jti-1": true}}
	resolved := int64(1)
	e := newGateEcho(tokens, &resolved)

	token := mustMakeAccessToken(t, testSecret, 42, 1, "USER", "jti-1")
	rec := runGateRequest(t, e, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ドメイン未解決ならトークンのテナントだけで進む
func TestAuthJWT_NoResolvedTenantPasses(t *testing.T) {
	tokens := &fakeTokenLiveness{active: map[string]bool{"jti-1": true}}
	e := newGateEcho(tokens, nil)

	token := mustMakeAccessToken(t, testSecret, 42, 1, "USER", "jti-1")
	rec := runGateRequest(t, e, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthJWT_ExpiredTokenRejected(t *testing.T) {
	tokens := &fakeTokenLiveness{active: map[string]bool{"jti-1": true}}
	e := newGateEcho(tokens, nil)

	claims := jwt.MapClaims{
		"sub":  int64(42),
		"tid":  int64(1),
		"role": "USER",
		"jti":  "jti-1",
		"iat":  1,
		"exp":  2, // とっくに期限切れ
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	assert.NoError(t, err)

	rec := runGateRequest(t, e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
