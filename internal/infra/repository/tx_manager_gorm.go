package repository

import (
	"context"
	"fmt"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	users         repo.UserRepository
	tenants       repo.TenantRepository
	tenantDomains repo.TenantDomainRepository
	sessions      repo.SessionRepository
}

func (r *txReposGorm) Users() repo.UserRepository                 { return r.users }
func (r *txReposGorm) Tenants() repo.TenantRepository             { return r.tenants }
func (r *txReposGorm) TenantDomains() repo.TenantDomainRepository { return r.tenantDomains }
func (r *txReposGorm) Sessions() repo.SessionRepository           { return r.sessions }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(newTxRepos(tx))
	})
}

// テナントコンテキスト付きTx。
// SET LOCALなのでcommit/rollbackで必ず解除される（リクエスト跨ぎの残留なし）。
// RLSを使うデータ層はこの値を前提にフィルタする。
func (tm *TxManagerGorm) WithinTenantTx(ctx context.Context, tenantID int64, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//fnの前に必ずtenant_idを設定する。
		//SET LOCALはバインドパラメータを受け付けないので数値を直接埋め込む。
		stmt := fmt.Sprintf("SET LOCAL app.current_tenant_id = '%d'", tenantID)
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
		return fn(newTxRepos(tx))
	})
}

func newTxRepos(tx *gorm.DB) repo.TxRepos {
	return &txReposGorm{
		users:         NewUserGormRepository(tx),
		tenants:       NewTenantGormRepository(tx),
		tenantDomains: NewTenantDomainGormRepository(tx),
		sessions:      NewSessionRepository(tx),
	}
}
