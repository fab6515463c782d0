package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// =====================
// Helper
// =====================

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		BcryptCost:      10,
	}
}

func newTokenService(sessions *MockSessionRepository, users *MockUserRepository) *TokenService {
	return NewTokenService(testConfig(), sessions, users, zap.NewNop())
}

func testUser() *model.User {
	return &model.User{
		ID:           42,
		TenantID:     1,
		Email:        "a@x.com",
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
	}
}

// tokenをパースしてclaimsを取り出す
func mustParseClaims(t *testing.T, raw string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(raw, func(tk *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token parse failed: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type")
	}
	return claims
}

// =====================
// Issue
// =====================

func TestTokenService_Issue_CreatesSessionAndBindsJTI(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	var created *model.Session
	sessions.On("Create", ctx, mock.AnythingOfType("*model.Session")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*model.Session)
		}).
		Return(nil)

	var boundJTI string
	sessions.On("BindAccessToken", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			boundJTI = args.String(2)
		}).
		Return(nil)

	pair, err := svc.Issue(ctx, testUser(), "203.0.113.9", "test-agent")

	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int((15 * time.Minute).Seconds()), pair.ExpiresIn)

	//セッション行はトークンのテナントと一致する
	assert.NotNil(t, created)
	assert.Equal(t, int64(42), created.UserID)
	assert.Equal(t, int64(1), created.TenantID)
	assert.Equal(t, pair.RefreshToken, created.RefreshToken)
	assert.Equal(t, "203.0.113.9", created.IPAddress)
	assert.Equal(t, "test-agent", created.UserAgent)

	//access tokenのjtiがセッションに紐付く
	claims := mustParseClaims(t, pair.AccessToken)
	assert.Equal(t, claims["jti"], boundJTI)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, float64(1), claims["tid"])
	assert.Equal(t, "USER", claims["role"])

	//refresh tokenはtoken_versionを持つ
	refreshClaims := mustParseClaims(t, pair.RefreshToken)
	assert.Equal(t, float64(0), refreshClaims["tv"])

	sessions.AssertExpectations(t)
}

// =====================
// Refresh
// =====================

func validSession(refreshToken string) *model.Session {
	jti := "11111111-1111-1111-1111-111111111111"
	return &model.Session{
		ID:            "22222222-2222-2222-2222-222222222222",
		UserID:        42,
		TenantID:      1,
		AccessTokenID: &jti,
		RefreshToken:  refreshToken,
		IsRevoked:     false,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}
}

func TestTokenService_Refresh_IssuesNewJTI(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	user := testUser()
	refreshToken, err := svc.signRefreshToken(user, time.Now())
	assert.NoError(t, err)

	session := validSession(refreshToken)

	sessions.On("FindByRefreshToken", ctx, refreshToken).Return(session, nil)
	users.On("FindByID", ctx, int64(42)).Return(user, nil)

	var newJTI string
	sessions.On("BindAccessToken", ctx, refreshToken, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			newJTI = args.String(2)
		}).
		Return(nil)

	accessToken, expiresIn, err := svc.Refresh(ctx, refreshToken)

	assert.NoError(t, err)
	assert.Equal(t, int((15 * time.Minute).Seconds()), expiresIn)

	//新しいJTIは旧JTIと別物
	claims := mustParseClaims(t, accessToken)
	assert.Equal(t, claims["jti"], newJTI)
	assert.NotEqual(t, *session.AccessTokenID, newJTI)
}

func TestTokenService_Refresh_RejectsRevokedSession(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	refreshToken, _ := svc.signRefreshToken(testUser(), time.Now())
	session := validSession(refreshToken)
	session.IsRevoked = true

	sessions.On("FindByRefreshToken", ctx, refreshToken).Return(session, nil)

	_, _, err := svc.Refresh(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenService_Refresh_RejectsExpiredSession(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	refreshToken, _ := svc.signRefreshToken(testUser(), time.Now())
	session := validSession(refreshToken)
	session.ExpiresAt = time.Now().Add(-time.Minute)

	sessions.On("FindByRefreshToken", ctx, refreshToken).Return(session, nil)

	_, _, err := svc.Refresh(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenService_Refresh_RejectsUnknownSession(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	refreshToken, _ := svc.signRefreshToken(testUser(), time.Now())

	sessions.On("FindByRefreshToken", ctx, refreshToken).Return(nil, repository.ErrSessionNotFound)

	_, _, err := svc.Refresh(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// token_versionを上げると、セッション行が生きていても旧refreshは全滅する
func TestTokenService_Refresh_RejectsStaleTokenVersion(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	//tv=0で発行したrefresh
	oldUser := testUser()
	refreshToken, _ := svc.signRefreshToken(oldUser, time.Now())

	//その後tvが1に上がった
	currentUser := testUser()
	currentUser.TokenVersion = 1

	sessions.On("FindByRefreshToken", ctx, refreshToken).Return(validSession(refreshToken), nil)
	users.On("FindByID", ctx, int64(42)).Return(currentUser, nil)

	_, _, err := svc.Refresh(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	sessions.AssertNotCalled(t, "BindAccessToken", mock.Anything, mock.Anything, mock.Anything)
}

// 同じrefresh tokenで同時に2回refreshしても両方成功する。
// セッション行は現行＋1世代前のJTIを保持するので、どちらのaccessも生存扱いになる
func TestTokenService_Refresh_ConcurrentBothSucceed(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	user := testUser()
	refreshToken, _ := svc.signRefreshToken(user, time.Now())

	sessions.On("FindByRefreshToken", ctx, refreshToken).Return(validSession(refreshToken), nil).Times(2)
	users.On("FindByID", ctx, int64(42)).Return(user, nil).Times(2)
	sessions.On("BindAccessToken", ctx, refreshToken, mock.AnythingOfType("string")).Return(nil).Times(2)

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = svc.Refresh(ctx, refreshToken)
		}(i)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])

	jti0 := mustParseClaims(t, results[0])["jti"]
	jti1 := mustParseClaims(t, results[1])["jti"]
	assert.NotEqual(t, jti0, jti1)
}

// =====================
// IsActive
// =====================

func TestTokenService_IsActive(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	sessions.On("IsRevokedOrExpired", ctx, "live-jti").Return(false, nil)
	sessions.On("IsRevokedOrExpired", ctx, "dead-jti").Return(true, nil)

	assert.True(t, svc.IsActive(ctx, "live-jti"))
	assert.False(t, svc.IsActive(ctx, "dead-jti"))
}

// ストア障害はfail-closed（絶対に通さない）
func TestTokenService_IsActive_FailsClosedOnStoreError(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	sessions.On("IsRevokedOrExpired", ctx, "any-jti").Return(true, errors.New("connection refused"))

	assert.False(t, svc.IsActive(ctx, "any-jti"))
}

// =====================
// Revoke
// =====================

func TestTokenService_RevokeAllForUser_BumpsTokenVersion(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	users.On("IncrementTokenVersion", ctx, int64(42)).Return(nil)
	sessions.On("RevokeAllByUserID", ctx, int64(42)).Return(nil)

	assert.NoError(t, svc.RevokeAllForUser(ctx, 42))

	users.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

// revokeは冪等（2回目も同じ結果でエラーなし）
func TestTokenService_RevokeSession_Idempotent(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	svc := newTokenService(sessions, users)

	sessions.On("RevokeByRefreshToken", ctx, "some-refresh").Return(nil).Times(2)

	assert.NoError(t, svc.RevokeSession(ctx, "some-refresh"))
	assert.NoError(t, svc.RevokeSession(ctx, "some-refresh"))
}
