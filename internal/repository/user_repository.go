package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// 見つからないときは (nil, nil)。認証側でnilを見て401にする
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	// emailは小文字に揃えてから渡す
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}
