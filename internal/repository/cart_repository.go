package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// ACTIVEなカートはユーザーごとに最大1つ
type CartRepository interface {
	// 無ければ作る。同時に呼ばれても同じカートを返す
	GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// SELECT ... FOR UPDATE。同じカートのチェックアウトを直列にする
	LockActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// ACTIVE → CHECKED_OUT。ACTIVEでなければ ErrConflict
	MarkCheckedOut(ctx context.Context, cartID int64) error
}
