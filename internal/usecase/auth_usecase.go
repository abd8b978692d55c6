package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   int     `json:"expires_in"`
	User        UserDTO `json:"user"`
}

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	validator AuthValidator
	now       func() time.Time
}

func NewAuthUsecase(cfg config.Config, users repository.UserRepository, validator AuthValidator) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		validator: validator,
		now:       time.Now,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, email, req.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(pwHash),
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		//validatorをすり抜けた同時登録はここでunique違反になる
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrEmailTaken, "email already used")
		}
		return nil, internalError(err)
	}

	return &AuthRegisterResponse{User: toUserDTO(user)}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := u.validator.ValidateLogin(ctx, email, req.Password); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, newError(ErrUnauthorized, "invalid email or password")
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, newError(ErrForbidden, "user is disabled")
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, newError(ErrUnauthorized, "invalid email or password")
	}

	//last_login更新（失敗してもログインは通す）
	now := u.now()
	if err := u.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		slog.WarnContext(ctx, "touch last login failed", "step", "login", "user_id", user.ID, "error", err.Error())
	}

	token, expiresIn, err := u.issueAccessToken(user, now)
	if err != nil {
		return nil, internalError(err)
	}

	return &AuthLoginResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		User:        toUserDTO(user),
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, newError(ErrUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, newError(ErrUnauthorized, "unauthorized")
	}
	if !user.IsActive {
		return nil, newError(ErrForbidden, "user is disabled")
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// jwt発行（HS256, sub/role/exp）
func (u *AuthUsecase) issueAccessToken(user *model.User, now time.Time) (string, int, error) {
	ttl := u.cfg.AccessTokenTTL
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}
	return signed, int(ttl.Seconds()), nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}
