package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrDomainNotFound = errors.New("tenant domain not found")

// ホスト名→テナントの解決結果
type ResolvedTenant struct {
	TenantID int64
	IsActive bool
}

// 毎リクエストのホスト名解決。実装はDB直 or キャッシュ付き。
type TenantDomainLookup interface {
	// 正規化済みホスト名で解決する。無ければErrDomainNotFound。
	Resolve(ctx context.Context, hostname string) (*ResolvedTenant, error)
}

// テナントドメインの管理用
type TenantDomainRepository interface {
	Create(ctx context.Context, domain *model.TenantDomain) error
	// 見つからなければErrDomainNotFound
	FindByID(ctx context.Context, domainID int64) (*model.TenantDomain, error)
	FindByHostname(ctx context.Context, hostname string) (*model.TenantDomain, error)
	ListByTenantID(ctx context.Context, tenantID int64) ([]model.TenantDomain, error)
	CountByTenantID(ctx context.Context, tenantID int64) (int64, error)
	// primaryはテナント内で常に1件
	SetPrimary(ctx context.Context, tenantID int64, domainID int64) error
	DeleteByID(ctx context.Context, domainID int64) error
}
