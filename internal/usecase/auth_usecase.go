package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, tenantID int64, email string, password string) error
	ValidateLogin(ctx context.Context, tenantID int64, email string, password string) error
	ValidateSignup(ctx context.Context, companyName string, email string, password string) error
	ValidateRefresh(ctx context.Context, refreshToken string) error
}

type UserDTO struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type TenantDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type AuthRegisterRequest struct {
	TenantID int64  `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	TenantID int64  `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO   `json:"user"`
	Token TokenPair `json:"token"`
}

type TenantSignupRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type TenantSignupResponse struct {
	Tenant TenantDTO `json:"tenant"`
	User   UserDTO   `json:"user"`
	Token  TokenPair `json:"token"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// ログイン失敗の応答時間を均すためのダミーハッシュ
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	tenants   repository.TenantRepository
	sessions  repository.SessionRepository
	tx        repository.TransactionManager
	tokens    *TokenService
	validator AuthValidator
	log       *zap.Logger
}

func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	tenants repository.TenantRepository,
	sessions repository.SessionRepository,
	tx repository.TransactionManager,
	tokens *TokenService,
	validator AuthValidator,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		tenants:   tenants,
		sessions:  sessions,
		tx:        tx,
		tokens:    tokens,
		validator: validator,
		log:       log,
	}
}

// Register は会員登録。password hashはこの層から外に出さない。
func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	//入力検証（validatorに寄せる。email重複チェックもそちら）
	if err := u.validator.ValidateRegister(ctx, req.TenantID, req.Email, req.Password); err != nil {
		return nil, err
	}

	//テナントが実在して有効か
	tenant, err := u.tenants.FindByID(ctx, req.TenantID)
	if err != nil {
		return nil, ErrInternal
	}
	if tenant == nil || !tenant.IsActive {
		return nil, ErrValidation
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), u.cfg.BcryptCost)
	if err != nil {
		return nil, ErrInternal
	}

	user := &model.User{
		TenantID:     req.TenantID,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(pwHash),
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
	}

	if err := u.users.Create(ctx, user); err != nil {
		//(tenant_id, email)のunique違反
		return nil, ErrConflict
	}

	return &AuthRegisterResponse{User: toUserDTO(user)}, nil
}

// Login はパスワード認証してトークンペアを発行する。
// 「ユーザー不在」「パスワード違い」「停止中」は全部同じエラーにする（列挙対策）。
func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest, userAgent string, ip string) (*AuthLoginResponse, error) {
	if err := u.validator.ValidateLogin(ctx, req.TenantID, req.Email, req.Password); err != nil {
		return nil, err
	}

	user, err := u.users.FindByTenantAndEmail(ctx, req.TenantID, strings.TrimSpace(req.Email))
	if err != nil {
		u.log.Error("user lookup failed on login", zap.Error(err))
		return nil, ErrUnauthorized
	}

	if user == nil {
		//不在でもハッシュ比較を1回行って応答時間を揃える
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(req.Password))
		u.log.Info("login rejected: unknown email", zap.Int64("tenant_id", req.TenantID))
		return nil, ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		u.log.Info("login rejected: password mismatch", zap.Int64("user_id", user.ID))
		return nil, ErrUnauthorized
	}

	if !user.IsActive {
		u.log.Info("login rejected: inactive user", zap.Int64("user_id", user.ID))
		return nil, ErrUnauthorized
	}

	//last_login更新。失敗してもログイン自体は通すが、書けない状態は運用に見せる。
	now := time.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.log.Warn("last login update failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	pair, err := u.tokens.Issue(ctx, user, ip, userAgent)
	if err != nil {
		return nil, ErrInternal
	}

	return &AuthLoginResponse{
		User:  toUserDTO(user),
		Token: *pair,
	}, nil
}

// SignupTenant はテナント＋初代オーナーを1トランザクションで作る。
// 片方だけ残る状態は作らない。成功したらそのままログイン扱い。
func (u *AuthUsecase) SignupTenant(ctx context.Context, req TenantSignupRequest, userAgent string, ip string) (*TenantSignupResponse, error) {
	if err := u.validator.ValidateSignup(ctx, req.CompanyName, req.Email, req.Password); err != nil {
		return nil, err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), u.cfg.BcryptCost)
	if err != nil {
		return nil, ErrInternal
	}

	var tenant *model.Tenant
	var owner *model.User

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		slug, slugErr := uniqueSlug(ctx, r.Tenants(), req.CompanyName)
		if slugErr != nil {
			return slugErr
		}

		tenant = &model.Tenant{
			Name:     strings.TrimSpace(req.CompanyName),
			Slug:     slug,
			IsActive: true,
		}
		if createErr := r.Tenants().Create(ctx, tenant); createErr != nil {
			return createErr
		}

		owner = &model.User{
			TenantID:     tenant.ID,
			Email:        strings.TrimSpace(req.Email),
			PasswordHash: string(pwHash),
			Role:         model.RoleOwner,
			IsActive:     true,
		}
		return r.Users().Create(ctx, owner)
	})
	if err != nil {
		u.log.Error("tenant signup transaction failed", zap.Error(err))
		return nil, ErrConflict
	}

	pair, err := u.tokens.Issue(ctx, owner, ip, userAgent)
	if err != nil {
		return nil, ErrInternal
	}

	return &TenantSignupResponse{
		Tenant: TenantDTO{ID: tenant.ID, Name: tenant.Name, Slug: tenant.Slug},
		User:   toUserDTO(owner),
		Token:  *pair,
	}, nil
}

// Refresh はアクセストークンの再発行。
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := u.validator.ValidateRefresh(ctx, refreshToken); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := u.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	//refresh tokenは回転させない（期限まで同じものを使う）
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// Logout は自分のセッションを1件失効する。
func (u *AuthUsecase) Logout(ctx context.Context, userID int64, refreshToken string) (*SuccessResponse, error) {
	if refreshToken == "" {
		return nil, ErrValidation
	}

	session, err := u.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	//他人のセッションは触らせない
	if session.UserID != userID {
		return nil, ErrUnauthorized
	}

	if err := u.tokens.RevokeSession(ctx, refreshToken); err != nil {
		return nil, ErrInternal
	}

	return &SuccessResponse{Message: "logout success"}, nil
}

// RevokeAll は自分の全セッション失効（全端末ログアウト）。
func (u *AuthUsecase) RevokeAll(ctx context.Context, userID int64) (*SuccessResponse, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	if err := u.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return nil, ErrInternal
	}

	return &SuccessResponse{Message: "all sessions revoked"}, nil
}

// Me はトークン主体の情報を返す。
func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		TenantID: u.TenantID,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

// 会社名からslugを作る。衝突したら-2, -3…と数字を足す。
func uniqueSlug(ctx context.Context, tenants repository.TenantRepository, name string) (string, error) {
	base := slugify(name)

	candidate := base
	for i := 2; ; i++ {
		existing, err := tenants.FindBySlug(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// 小文字英数とハイフンだけにする
func slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	prevHyphen := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "tenant"
	}
	return slug
}
