package usecase

import (
	"context"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByTenantAndEmail(ctx context.Context, tenantID int64, email string) (*model.User, error) {
	args := m.Called(ctx, tenantID, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

// =====================
// Mock: SessionRepository
// =====================

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) BindAccessToken(ctx context.Context, refreshToken string, accessTokenID string) error {
	args := m.Called(ctx, refreshToken, accessTokenID)
	return args.Error(0)
}

func (m *MockSessionRepository) IsRevokedOrExpired(ctx context.Context, accessTokenID string) (bool, error) {
	args := m.Called(ctx, accessTokenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*model.Session, error) {
	args := m.Called(ctx, refreshToken)
	s, _ := args.Get(0).(*model.Session)
	return s, args.Error(1)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, accessTokenID string) error {
	args := m.Called(ctx, accessTokenID)
	return args.Error(0)
}

func (m *MockSessionRepository) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockSessionRepository) RevokeAllByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessionRepository) RevokeAllByTenantID(ctx context.Context, tenantID int64) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockSessionRepository) PurgeExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	args := m.Called(ctx, now, retention)
	return args.Get(0).(int64), args.Error(1)
}

var _ repository.SessionRepository = (*MockSessionRepository)(nil)

// =====================
// Mock: TenantRepository
// =====================

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) FindByID(ctx context.Context, tenantID int64) (*model.Tenant, error) {
	args := m.Called(ctx, tenantID)
	t, _ := args.Get(0).(*model.Tenant)
	return t, args.Error(1)
}

func (m *MockTenantRepository) FindBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	args := m.Called(ctx, slug)
	t, _ := args.Get(0).(*model.Tenant)
	return t, args.Error(1)
}

var _ repository.TenantRepository = (*MockTenantRepository)(nil)

// =====================
// Mock: TenantDomainRepository
// =====================

type MockTenantDomainRepository struct {
	mock.Mock
}

func (m *MockTenantDomainRepository) Create(ctx context.Context, domain *model.TenantDomain) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *MockTenantDomainRepository) FindByID(ctx context.Context, domainID int64) (*model.TenantDomain, error) {
	args := m.Called(ctx, domainID)
	d, _ := args.Get(0).(*model.TenantDomain)
	return d, args.Error(1)
}

func (m *MockTenantDomainRepository) FindByHostname(ctx context.Context, hostname string) (*model.TenantDomain, error) {
	args := m.Called(ctx, hostname)
	d, _ := args.Get(0).(*model.TenantDomain)
	return d, args.Error(1)
}

func (m *MockTenantDomainRepository) ListByTenantID(ctx context.Context, tenantID int64) ([]model.TenantDomain, error) {
	args := m.Called(ctx, tenantID)
	list, _ := args.Get(0).([]model.TenantDomain)
	return list, args.Error(1)
}

func (m *MockTenantDomainRepository) CountByTenantID(ctx context.Context, tenantID int64) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantDomainRepository) SetPrimary(ctx context.Context, tenantID int64, domainID int64) error {
	args := m.Called(ctx, tenantID, domainID)
	return args.Error(0)
}

func (m *MockTenantDomainRepository) DeleteByID(ctx context.Context, domainID int64) error {
	args := m.Called(ctx, domainID)
	return args.Error(0)
}

var _ repository.TenantDomainRepository = (*MockTenantDomainRepository)(nil)

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, tenantID int64, email string, password string) error {
	args := m.Called(ctx, tenantID, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, tenantID int64, email string, password string) error {
	args := m.Called(ctx, tenantID, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateSignup(ctx context.Context, companyName string, email string, password string) error {
	args := m.Called(ctx, companyName, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateRefresh(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

var _ AuthValidator = (*MockAuthValidator)(nil)

// =====================
// Fake: TransactionManager（fnにモックrepoを渡すだけ）
// =====================

type fakeTxRepos struct {
	users         repository.UserRepository
	tenants       repository.TenantRepository
	tenantDomains repository.TenantDomainRepository
	sessions      repository.SessionRepository
}

func (r *fakeTxRepos) Users() repository.UserRepository                 { return r.users }
func (r *fakeTxRepos) Tenants() repository.TenantRepository             { return r.tenants }
func (r *fakeTxRepos) TenantDomains() repository.TenantDomainRepository { return r.tenantDomains }
func (r *fakeTxRepos) Sessions() repository.SessionRepository           { return r.sessions }

type fakeTxManager struct {
	repos *fakeTxRepos

	//WithinTenantTxに渡されたテナントIDの記録
	tenantTxIDs []int64
}

func (tm *fakeTxManager) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	return fn(tm.repos)
}

func (tm *fakeTxManager) WithinTenantTx(ctx context.Context, tenantID int64, fn func(r repository.TxRepos) error) error {
	tm.tenantTxIDs = append(tm.tenantTxIDs, tenantID)
	return fn(tm.repos)
}

var _ repository.TransactionManager = (*fakeTxManager)(nil)
