package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Users() UserRepository
	Tenants() TenantRepository
	TenantDomains() TenantDomainRepository
	Sessions() SessionRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
	// テナントコンテキスト付きTx。fnの前に必ずSET LOCALでtenant_idを
	// 設定する（RLSの前提）。スコープはこのTxに限られる。
	WithinTenantTx(ctx context.Context, tenantID int64, fn func(r TxRepos) error) error
}
