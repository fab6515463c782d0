package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type sessionGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewSessionRepository(db *gorm.DB) repo.SessionRepository {
	return &sessionGormRepository{db: db}
}

// セッションを保存。
func (r *sessionGormRepository) Create(ctx context.Context, session *model.Session) error {
	//タイムアウトやキャンセルをDB処理に伝える
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return err
	}
	return nil
}

// refresh tokenで特定した行に現行JTIを紐付ける。
// 旧JTIはprev_access_token_idへ退避する（SET句の右辺は更新前の値を参照する）。
func (r *sessionGormRepository) BindAccessToken(ctx context.Context, refreshToken string, accessTokenID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("refresh_token = ?", refreshToken).
		Updates(map[string]interface{}{
			"prev_access_token_id": gorm.Expr("access_token_id"),
			"access_token_id":      accessTokenID,
			"last_used_at":         &now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return repo.ErrSessionNotFound
	}

	return nil
}

// JTIが失効済み・期限切れかを判定。現行と1世代前のJTIを生存扱いにする。
// どの行も参照していないJTIはtrue（未知のJTIは有効扱いにしない）。
func (r *sessionGormRepository) IsRevokedOrExpired(ctx context.Context, accessTokenID string) (bool, error) {
	var session model.Session

	err := r.db.WithContext(ctx).
		Where("access_token_id = ? OR prev_access_token_id = ?", accessTokenID, accessTokenID).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return true, err
	}

	if session.IsRevoked {
		return true, nil
	}
	if session.ExpiresAt.Before(time.Now()) {
		return true, nil
	}

	return false, nil
}

// refresh_tokenで1件検索します。
func (r *sessionGormRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*model.Session, error) {
	var session model.Session

	err := r.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// JTIで失効。1世代前のJTI指定でも行ごと失効する。0件でもエラーにしない（冪等）。
func (r *sessionGormRepository) Revoke(ctx context.Context, accessTokenID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("access_token_id = ? OR prev_access_token_id = ?", accessTokenID, accessTokenID).
		Update("is_revoked", true).Error
}

// refresh tokenで失効。
func (r *sessionGormRepository) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("refresh_token = ?", refreshToken).
		Update("is_revoked", true).Error
}

// 指定ユーザーのセッションを全失効。
func (r *sessionGormRepository) RevokeAllByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("user_id = ?", userID).
		Update("is_revoked", true).Error
}

// 指定テナントのセッションを全失効。
func (r *sessionGormRepository) RevokeAllByTenantID(ctx context.Context, tenantID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("tenant_id = ?", tenantID).
		Update("is_revoked", true).Error
}

// 期限切れ・失効済みでretentionより古い行を削除して件数を返す。
// リクエスト経路では呼ばない（メンテナンス用）。
func (r *sessionGormRepository) PurgeExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention)

	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Or("is_revoked = ? AND created_at < ?", true, cutoff).
		Delete(&model.Session{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
