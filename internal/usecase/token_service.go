package usecase

import (
	"context"
	"errors"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// トークンの発行・更新・失効。Sessionの書き込みはここだけが行う。
type TokenService struct {
	cfg      config.Config
	sessions repository.SessionRepository
	users    repository.UserRepository
	log      *zap.Logger
}

func NewTokenService(
	cfg config.Config,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	log *zap.Logger,
) *TokenService {
	return &TokenService{
		cfg:      cfg,
		sessions: sessions,
		users:    users,
		log:      log,
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Issue はログイン成功時のトークンペア発行。
// JTIはuuid（暗号論的乱数）。推測可能なJTIは失効チェックを迂回されうる。
func (s *TokenService) Issue(ctx context.Context, user *model.User, ip string, userAgent string) (*TokenPair, error) {
	now := time.Now()
	jti := uuid.NewString()

	accessToken, err := s.signAccessToken(user, jti, now)
	if err != nil {
		return nil, ErrInternal
	}

	//refresh tokenにはtoken_versionを埋め込む
	//（パスワード変更・全端末ログアウトでrefreshを一括無効化するため）
	refreshToken, err := s.signRefreshToken(user, now)
	if err != nil {
		return nil, ErrInternal
	}

	session := &model.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		TenantID:     user.TenantID,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.cfg.RefreshTokenTTL),
		IPAddress:    ip,
		UserAgent:    userAgent,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, ErrInternal
	}

	if err := s.sessions.BindAccessToken(ctx, refreshToken, jti); err != nil {
		return nil, ErrInternal
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh はアクセストークンを再発行する。
// refresh token自体は使い回す（回転しない）。JTIだけ新しくなる。
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, int, error) {
	//署名と期限の検証
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return "", 0, ErrUnauthorized
	}

	//セッション照合
	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.log.Error("session lookup failed on refresh", zap.Error(err))
		}
		return "", 0, ErrUnauthorized
	}

	if session.IsRevoked {
		return "", 0, ErrUnauthorized
	}
	if session.ExpiresAt.Before(time.Now()) {
		return "", 0, ErrUnauthorized
	}

	//user取得
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil || user == nil {
		return "", 0, ErrUnauthorized
	}
	if !user.IsActive {
		return "", 0, ErrUnauthorized
	}

	//token_version照合。DB書き込みなしで発行済みrefreshを一括無効化できる。
	tv, err := claimInt(claims, "tv")
	if err != nil || tv != user.TokenVersion {
		s.log.Info("refresh rejected by token version",
			zap.Int64("user_id", user.ID),
			zap.Int("claim_tv", tv),
			zap.Int("current_tv", user.TokenVersion))
		return "", 0, ErrUnauthorized
	}

	//新しいJTIでaccess再発行
	now := time.Now()
	jti := uuid.NewString()

	accessToken, err := s.signAccessToken(user, jti, now)
	if err != nil {
		return "", 0, ErrInternal
	}

	if err := s.sessions.BindAccessToken(ctx, refreshToken, jti); err != nil {
		return "", 0, ErrInternal
	}

	return accessToken, int(s.cfg.AccessTokenTTL.Seconds()), nil
}

// IsActive は毎認証リクエストのJTI生存チェック。
// ストア障害時はfalse（fail-closed）。
func (s *TokenService) IsActive(ctx context.Context, accessTokenID string) bool {
	revoked, err := s.sessions.IsRevokedOrExpired(ctx, accessTokenID)
	if err != nil {
		//認証失敗とは区別してログを残す（運用で見分けるため）
		s.log.Error("session store unreachable, failing closed", zap.Error(err))
		return false
	}
	return !revoked
}

// JTI1件を失効
func (s *TokenService) RevokeOne(ctx context.Context, accessTokenID string) error {
	return s.sessions.Revoke(ctx, accessTokenID)
}

// refresh tokenでセッションを失効（冪等）
func (s *TokenService) RevokeSession(ctx context.Context, refreshToken string) error {
	return s.sessions.RevokeByRefreshToken(ctx, refreshToken)
}

// ユーザーの全セッション失効＋token_version+1。
// 飛行中のrefreshもtoken_version照合で落ちる。
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID int64) error {
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return err
	}
	return s.sessions.RevokeAllByUserID(ctx, userID)
}

// テナント単位の全失効
func (s *TokenService) RevokeAllForTenant(ctx context.Context, tenantID int64) error {
	return s.sessions.RevokeAllByTenantID(ctx, tenantID)
}

// access token発行。claims: sub / tid / role / jti
func (s *TokenService) signAccessToken(user *model.User, jti string, now time.Time) (string, error) {
	exp := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"tid":  user.TenantID,
		"role": string(user.Role),
		"jti":  jti,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

// refresh token発行。claims: sub / tid / tv
func (s *TokenService) signRefreshToken(user *model.User, now time.Time) (string, error) {
	exp := now.Add(s.cfg.RefreshTokenTTL)

	claims := jwt.MapClaims{
		"sub": user.ID,
		"tid": user.TenantID,
		"tv":  user.TokenVersion,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

// 署名・期限を検証してclaimsを返す
func (s *TokenService) parseToken(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}

	return claims, nil
}

// claimの数値をintに変換する
func claimInt(claims jwt.MapClaims, key string) (int, error) {
	switch t := claims[key].(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	default:
		return 0, errors.New("invalid int claim")
	}
}
