package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type txReposMock struct {
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	carts      *CartRepoMock
	cartItems  *CartItemRepoMock
	inventory  *InventoryRepoMock
	products   *ProductRepoMock
	addresses  *AddressRepoMock
	auditLogs  *AuditRepoMock
	outbox     *OutboxRepoMock
}

func newTxReposMock() *txReposMock {
	return &txReposMock{
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		carts:      new(CartRepoMock),
		cartItems:  new(CartItemRepoMock),
		inventory:  new(InventoryRepoMock),
		products:   new(ProductRepoMock),
		addresses:  new(AddressRepoMock),
		auditLogs:  new(AuditRepoMock),
		outbox:     new(OutboxRepoMock),
	}
}

func (r *txReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *txReposMock) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *txReposMock) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *txReposMock) Products() repo.ProductRepository     { return r.products }
func (r *txReposMock) Addresses() repo.AddressRepository    { return r.addresses }
func (r *txReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }
func (r *txReposMock) Outbox() repo.OutboxRepository        { return r.outbox }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error {
	return m.Called(ctx, orderID, from, to).Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return m.Called(ctx, orderID, items).Error(0)
}

func (m *OrderItemRepoMock) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	args := m.Called(ctx, orderIDs)
	return args.Get(0).(map[int64][]model.OrderItem), args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) LockActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) MarkCheckedOut(ctx context.Context, cartID int64) error {
	return m.Called(ctx, cartID).Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64) (model.CartItem, error) {
	args := m.Called(ctx, cartID, productID, addQty)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	return m.Called(ctx, cartItemID, qty).Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	return m.Called(ctx, cartItemID).Error(0)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	return m.Called(ctx, productID, newStock).Error(0)
}

func (m *InventoryRepoMock) ReserveStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) RestoreStock(ctx context.Context, productID int64, qty int64) error {
	return m.Called(ctx, productID, qty).Error(0)
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	return m.Called(ctx, adjustment).Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	list, _ := args.Get(0).([]model.Product)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	args := m.Called(ctx, ids)
	ps, _ := args.Get(0).(map[int64]model.Product)
	return ps, args.Error(1)
}

func (m *ProductRepoMock) GetForUpdate(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	return m.Called(ctx, p).Error(0)
}

type AddressRepoMock struct{ mock.Mock }

func (m *AddressRepoMock) Create(ctx context.Context, address model.Address) (model.Address, error) {
	args := m.Called(ctx, address)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *AddressRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Address)
	return list, args.Error(1)
}

func (m *AddressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *AddressRepoMock) Update(ctx context.Context, address model.Address) error {
	return m.Called(ctx, address).Error(0)
}

func (m *AddressRepoMock) Delete(ctx context.Context, addressID int64) error {
	return m.Called(ctx, addressID).Error(0)
}

func (m *AddressRepoMock) SetDefault(ctx context.Context, userID, addressID int64) error {
	return m.Called(ctx, userID, addressID).Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

type OutboxRepoMock struct{ mock.Mock }

func (m *OutboxRepoMock) Insert(ctx context.Context, event model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *OutboxRepoMock) ProcessPending(ctx context.Context, limit int, fn func(model.OutboxEvent) error) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

// =====================
// Checkout collaborators
// =====================

// map実装のリプレイキャッシュ
type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache { return &memoryCache{data: map[string][]byte{}} }

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte) error {
	c.data[key] = value
	return nil
}

type recorderMock struct {
	outcomes []string
}

func (r *recorderMock) Observe(outcome string, elapsed time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

type validatorStub struct{ err error }

func (v validatorStub) ValidateRegister(ctx context.Context, email string, password string) error {
	return v.err
}

func (v validatorStub) ValidateLogin(ctx context.Context, email string, password string) error {
	return v.err
}

type CategoryRepoMock struct{ mock.Mock }

func (m *CategoryRepoMock) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Category)
	return list, args.Error(1)
}

func (m *CategoryRepoMock) FindByID(ctx context.Context, id int64) (model.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

func (m *CategoryRepoMock) Create(ctx context.Context, c model.Category) (model.Category, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(model.Category)
	return out, args.Error(1)
}

type ReviewRepoMock struct{ mock.Mock }

func (m *ReviewRepoMock) Create(ctx context.Context, r model.Review) (model.Review, error) {
	args := m.Called(ctx, r)
	out, _ := args.Get(0).(model.Review)
	return out, args.Error(1)
}

func (m *ReviewRepoMock) ListByProductID(ctx context.Context, productID int64, page, limit int) ([]model.Review, int64, error) {
	args := m.Called(ctx, productID, page, limit)
	list, _ := args.Get(0).([]model.Review)
	return list, args.Get(1).(int64), args.Error(2)
}
