package repository

import (
	"app/internal/domain/model"
	"context"
)

// テナントの保存・取得を約束
type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	// 見つからなければ(nil, nil)
	FindByID(ctx context.Context, tenantID int64) (*model.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*model.Tenant, error)
}
