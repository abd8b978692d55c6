package validator

import (
	"context"
	"regexp"

	"storefront/internal/repository"
	"storefront/internal/usecase"
)

// パスワード最低文字数
const minPasswordLen = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return usecase.NewKindError(usecase.ErrValidation, "password must be at least 8 characters")
	}

	// email重複チェック（DBが必要）
	u, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		return usecase.NewKindError(usecase.ErrInternal, "internal server error")
	}
	if u != nil {
		return usecase.NewKindError(usecase.ErrEmailTaken, "email already used")
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	return validateCredentials(email, password)
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return usecase.NewKindError(usecase.ErrValidation, "email and password are required")
	}
	if !emailPattern.MatchString(email) {
		return usecase.NewKindError(usecase.ErrValidation, "invalid email")
	}
	return nil
}
