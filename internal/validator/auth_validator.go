package validator

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"app/internal/repository"
	"app/internal/usecase"
)

// パスワード最低文字数（MVP: 8）
const minPasswordLength = 8

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// 会員登録の入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, tenantID int64, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if tenantID <= 0 || email == "" || password == "" {
		return usecase.ErrValidation
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.ErrValidation
	}

	if len(password) < minPasswordLength {
		return usecase.ErrValidation
	}

	// email重複チェック（同一テナント内だけ見る）
	u, err := v.users.FindByTenantAndEmail(ctx, tenantID, email)
	if err == nil && u != nil {
		return usecase.NewHTTPError(http.StatusConflict, "email already registered")
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, tenantID int64, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if tenantID <= 0 || email == "" || password == "" {
		return usecase.ErrValidation
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.ErrValidation
	}

	return nil
}

// テナント新規契約の入力を検証
func (v *authValidator) ValidateSignup(ctx context.Context, companyName string, email string, password string) error {
	if strings.TrimSpace(companyName) == "" {
		return usecase.ErrValidation
	}

	if !isEmailLike(strings.TrimSpace(email)) {
		return usecase.ErrValidation
	}

	if len(password) < minPasswordLength {
		return usecase.ErrValidation
	}

	return nil
}

// refresh 入力を検証
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return usecase.ErrValidation
	}

	return nil
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
