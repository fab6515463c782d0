package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type tenantGormRepository struct {
	db *gorm.DB
}

// GORM実装
func NewTenantGormRepository(db *gorm.DB) repo.TenantRepository {
	return &tenantGormRepository{db: db}
}

// テナントを新規作成
func (r *tenantGormRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return err
	}
	return nil
}

// IDでテナントを1件取得
func (r *tenantGormRepository) FindByID(ctx context.Context, tenantID int64) (*model.Tenant, error) {
	var t model.Tenant

	err := r.db.WithContext(ctx).
		Where("id = ?", tenantID).
		First(&t).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &t, nil
}

// slugでテナントを1件取得
func (r *tenantGormRepository) FindBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	var t model.Tenant

	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&t).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &t, nil
}
