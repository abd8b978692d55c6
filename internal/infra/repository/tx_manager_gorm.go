package repository

import (
	"context"
	"fmt"
	"time"

	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	inventory  repo.InventoryRepository
	products   repo.ProductRepository
	addresses  repo.AddressRepository
	auditLogs  repo.AuditLogRepository
	outbox     repo.OutboxRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository           { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository     { return r.products }
func (r *txReposGorm) Addresses() repo.AddressRepository    { return r.addresses }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }
func (r *txReposGorm) Outbox() repo.OutboxRepository        { return r.outbox }

type TxManagerGorm struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// lockTimeoutは行ロック待ちの上限（0なら設定しない）
func NewTxManagerGorm(db *gorm.DB, lockTimeout time.Duration) *TxManagerGorm {
	return &TxManagerGorm{db: db, lockTimeout: lockTimeout}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tm.lockTimeout > 0 {
			//SET LOCALはこのTxの中だけ有効
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", tm.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		//repoはtxを持ったDBで作り直す
		return fn(NewTxRepos(tx))
	})
	return translate(err)
}

func NewTxRepos(db *gorm.DB) repo.TxRepos {
	return &txReposGorm{
		orders:     NewOrderGormRepository(db),
		orderItems: NewOrderItemGormRepository(db),
		carts:      NewCartGormRepository(db),
		cartItems:  NewCartItemGormRepository(db),
		inventory:  NewInventoryGormRepository(db),
		products:   NewProductGormRepository(db),
		addresses:  NewAddressGormRepository(db),
		auditLogs:  NewAuditLogGormRepository(db),
		outbox:     NewOutboxGormRepository(db),
	}
}
