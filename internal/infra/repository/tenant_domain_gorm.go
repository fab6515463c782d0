package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type tenantDomainGormRepository struct {
	db *gorm.DB
}

// GORM実装
func NewTenantDomainGormRepository(db *gorm.DB) repo.TenantDomainRepository {
	return &tenantDomainGormRepository{db: db}
}

// ドメインを新規作成
func (r *tenantDomainGormRepository) Create(ctx context.Context, domain *model.TenantDomain) error {
	if err := r.db.WithContext(ctx).Create(domain).Error; err != nil {
		return err
	}
	return nil
}

// IDで1件取得
func (r *tenantDomainGormRepository) FindByID(ctx context.Context, domainID int64) (*model.TenantDomain, error) {
	var d model.TenantDomain

	err := r.db.WithContext(ctx).
		Where("id = ?", domainID).
		First(&d).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrDomainNotFound
		}
		return nil, err
	}

	return &d, nil
}

// hostnameで1件取得
func (r *tenantDomainGormRepository) FindByHostname(ctx context.Context, hostname string) (*model.TenantDomain, error) {
	var d model.TenantDomain

	err := r.db.WithContext(ctx).
		Where("hostname = ?", hostname).
		First(&d).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrDomainNotFound
		}
		return nil, err
	}

	return &d, nil
}

// テナントのドメイン一覧
func (r *tenantDomainGormRepository) ListByTenantID(ctx context.Context, tenantID int64) ([]model.TenantDomain, error) {
	var list []model.TenantDomain

	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id").
		Find(&list).Error

	if err != nil {
		return nil, err
	}

	return list, nil
}

// テナントのドメイン数
func (r *tenantDomainGormRepository) CountByTenantID(ctx context.Context, tenantID int64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.TenantDomain{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error

	if err != nil {
		return 0, err
	}

	return count, nil
}

// primaryを付け替える。テナント内で常に1件。
func (r *tenantDomainGormRepository) SetPrimary(ctx context.Context, tenantID int64, domainID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//まず全ドメインのprimaryを外す
		if err := tx.Model(&model.TenantDomain{}).
			Where("tenant_id = ?", tenantID).
			Update("is_primary", false).Error; err != nil {
			return err
		}

		//対象だけprimaryにする
		result := tx.Model(&model.TenantDomain{}).
			Where("id = ? AND tenant_id = ?", domainID, tenantID).
			Update("is_primary", true)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repo.ErrDomainNotFound
		}

		return nil
	})
}

// Resolve はTenantDomainLookupの実装（DB直引き）。
// 本番ではcache.NewCachedDomainLookupで包んで使う。
func (r *tenantDomainGormRepository) Resolve(ctx context.Context, hostname string) (*repo.ResolvedTenant, error) {
	d, err := r.FindByHostname(ctx, hostname)
	if err != nil {
		return nil, err
	}

	return &repo.ResolvedTenant{TenantID: d.TenantID, IsActive: d.IsActive}, nil
}

// DB直引きのTenantDomainLookupが欲しい時用
func NewTenantDomainLookupGorm(db *gorm.DB) repo.TenantDomainLookup {
	return &tenantDomainGormRepository{db: db}
}

// IDで削除
func (r *tenantDomainGormRepository) DeleteByID(ctx context.Context, domainID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", domainID).
		Delete(&model.TenantDomain{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrDomainNotFound
	}

	return nil
}
