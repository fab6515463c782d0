package usecase

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"app/internal/domain/model"
	"app/internal/repository"

	"go.uber.org/zap"
)

type TenantDomainDTO struct {
	ID        int64  `json:"id"`
	Hostname  string `json:"hostname"`
	IsActive  bool   `json:"is_active"`
	IsPrimary bool   `json:"is_primary"`
}

type CreateDomainRequest struct {
	Hostname  string `json:"hostname"`
	IsPrimary bool   `json:"is_primary"`
}

// ドメイン解決キャッシュの無効化だけをinfra側から借りる約束
type DomainCacheInvalidator interface {
	InvalidateDomain(ctx context.Context, hostname string) error
}

// テナントドメインの管理。
// 書き込みはWithinTenantTx（テナントコンテキスト付きTx）でまとめて行い、
// 変更時は解決キャッシュも消す。
type TenantDomainUsecase struct {
	domains repository.TenantDomainRepository
	tx      repository.TransactionManager
	cache   DomainCacheInvalidator
	log     *zap.Logger
}

func NewTenantDomainUsecase(
	domains repository.TenantDomainRepository,
	tx repository.TransactionManager,
	cache DomainCacheInvalidator,
	log *zap.Logger,
) *TenantDomainUsecase {
	return &TenantDomainUsecase{
		domains: domains,
		tx:      tx,
		cache:   cache,
		log:     log,
	}
}

// List はテナントのドメイン一覧。読み取りだけなのでTxは張らない。
func (u *TenantDomainUsecase) List(ctx context.Context, tenantID int64) ([]TenantDomainDTO, error) {
	list, err := u.domains.ListByTenantID(ctx, tenantID)
	if err != nil {
		return nil, ErrInternal
	}

	dtos := make([]TenantDomainDTO, 0, len(list))
	for _, d := range list {
		dtos = append(dtos, toDomainDTO(&d))
	}
	return dtos, nil
}

// Create はドメイン追加。テナント初のドメインは自動的にprimaryになる。
func (u *TenantDomainUsecase) Create(ctx context.Context, tenantID int64, req CreateDomainRequest) (*TenantDomainDTO, error) {
	hostname := NormalizeHostname(req.Hostname)
	if hostname == "" || !strings.Contains(hostname, ".") {
		return nil, ErrValidation
	}

	//全テナント横断で一意。テナントTxの外で引く（他テナントの行も見える必要がある）。
	existing, err := u.domains.FindByHostname(ctx, hostname)
	if err != nil && !errors.Is(err, repository.ErrDomainNotFound) {
		return nil, ErrInternal
	}
	if existing != nil {
		return nil, NewHTTPError(http.StatusConflict, "hostname already registered")
	}

	var domain *model.TenantDomain
	err = u.tx.WithinTenantTx(ctx, tenantID, func(r repository.TxRepos) error {
		domains := r.TenantDomains()

		count, countErr := domains.CountByTenantID(ctx, tenantID)
		if countErr != nil {
			return ErrInternal
		}

		domain = &model.TenantDomain{
			TenantID:  tenantID,
			Hostname:  hostname,
			IsActive:  true,
			IsPrimary: count == 0,
		}

		if createErr := domains.Create(ctx, domain); createErr != nil {
			return ErrConflict
		}

		//2件目以降でprimary指定ならここで付け替える
		if req.IsPrimary && !domain.IsPrimary {
			if setErr := domains.SetPrimary(ctx, tenantID, domain.ID); setErr != nil {
				return ErrInternal
			}
			domain.IsPrimary = true
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toDomainDTO(domain)
	return &dto, nil
}

// SetPrimary はprimaryドメインの付け替え。
func (u *TenantDomainUsecase) SetPrimary(ctx context.Context, tenantID int64, domainID int64) (*SuccessResponse, error) {
	err := u.tx.WithinTenantTx(ctx, tenantID, func(r repository.TxRepos) error {
		return r.TenantDomains().SetPrimary(ctx, tenantID, domainID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDomainNotFound) {
			return nil, NewHTTPError(http.StatusNotFound, "domain not found")
		}
		return nil, ErrInternal
	}

	return &SuccessResponse{Message: "primary updated"}, nil
}

// Delete はドメイン削除。最後の1件は消せない。
func (u *TenantDomainUsecase) Delete(ctx context.Context, tenantID int64, domainID int64) (*SuccessResponse, error) {
	var hostname string

	err := u.tx.WithinTenantTx(ctx, tenantID, func(r repository.TxRepos) error {
		domains := r.TenantDomains()

		domain, findErr := domains.FindByID(ctx, domainID)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrDomainNotFound) {
				return NewHTTPError(http.StatusNotFound, "domain not found")
			}
			return ErrInternal
		}

		//他テナントのドメインは触らせない
		if domain.TenantID != tenantID {
			return ErrForbidden
		}

		count, countErr := domains.CountByTenantID(ctx, tenantID)
		if countErr != nil {
			return ErrInternal
		}
		if count <= 1 {
			return NewHTTPError(http.StatusConflict, "cannot delete the last domain")
		}

		if delErr := domains.DeleteByID(ctx, domainID); delErr != nil {
			return ErrInternal
		}

		//消したのがprimaryなら残りの先頭をprimaryにする
		if domain.IsPrimary {
			remaining, listErr := domains.ListByTenantID(ctx, tenantID)
			if listErr == nil && len(remaining) > 0 {
				_ = domains.SetPrimary(ctx, tenantID, remaining[0].ID)
			}
		}

		hostname = domain.Hostname
		return nil
	})
	if err != nil {
		return nil, err
	}

	//解決キャッシュから即時に消す（TTL待ちにしない）。commit後に行う。
	if err := u.cache.InvalidateDomain(ctx, hostname); err != nil {
		u.log.Warn("domain cache invalidation failed", zap.String("hostname", hostname), zap.Error(err))
	}

	return &SuccessResponse{Message: "domain deleted"}, nil
}

func toDomainDTO(d *model.TenantDomain) TenantDomainDTO {
	return TenantDomainDTO{
		ID:        d.ID,
		Hostname:  d.Hostname,
		IsActive:  d.IsActive,
		IsPrimary: d.IsPrimary,
	}
}

// NormalizeHostname はホスト名を「小文字・ポートなし」に揃える。
// TenantDomainの保存時と毎リクエストの解決時で同じ正規化を通す。
func NormalizeHostname(host string) string {
	h := strings.TrimSpace(host)
	if h == "" {
		return ""
	}

	//:portを落とす（IPv6の[::1]:8080にも対応）
	if stripped, _, err := net.SplitHostPort(h); err == nil {
		h = stripped
	}

	return strings.ToLower(h)
}
