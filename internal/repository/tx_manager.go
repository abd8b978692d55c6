package repository

import "context"

// 1トランザクションに束ねたrepository群。
// WithinTxのfnの外に持ち出してはいけない
type TxRepos interface {
	Carts() CartRepository
	CartItems() CartItemRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Addresses() AddressRepository

	Orders() OrderRepository
	OrderItems() OrderItemRepository
	AuditLogs() AuditLogRepository
	Outbox() OutboxRepository
}

type TransactionManager interface {
	// fnがnilを返せばcommit、エラーならrollbackしてそのエラーを返す
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
