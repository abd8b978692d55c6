package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 所有者チェックはusecase側（CanUseAddress）で行う
type AddressRepository interface {
	// ユーザーの最初の住所は自動でデフォルトになる
	Create(ctx context.Context, address model.Address) (model.Address, error)
	// デフォルトが先頭
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
	Update(ctx context.Context, address model.Address) error
	Delete(ctx context.Context, addressID int64) error
	// 他のデフォルトを外してから立てる（1トランザクション）
	SetDefault(ctx context.Context, userID, addressID int64) error
}
