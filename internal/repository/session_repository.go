package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// セッション（発行済みトークンペア）の保存・検索・失効。
// 読み取りの「見つからない」は失効扱いに倒す（fail-closed）。
type SessionRepository interface {
	// 新規セッション作成。失敗はそのままエラー。
	Create(ctx context.Context, session *model.Session) error
	// refresh tokenで特定したセッションに現行のJTIを紐付け、last_used_atを更新。
	// 対象が無ければErrSessionNotFound。
	BindAccessToken(ctx context.Context, refreshToken string, accessTokenID string) error
	// 毎リクエストの高速チェック。未知のJTIはtrue（失効扱い）を返す。
	IsRevokedOrExpired(ctx context.Context, accessTokenID string) (bool, error)
	// refresh tokenで1件取得。無ければErrSessionNotFound。
	FindByRefreshToken(ctx context.Context, refreshToken string) (*model.Session, error)
	// 以下のrevokeは冪等。対象0件はエラーにしない。
	Revoke(ctx context.Context, accessTokenID string) error
	RevokeByRefreshToken(ctx context.Context, refreshToken string) error
	RevokeAllByUserID(ctx context.Context, userID int64) error
	RevokeAllByTenantID(ctx context.Context, tenantID int64) error
	// 期限切れ・失効済みでretentionより古い行を削除して件数を返す。
	PurgeExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}
