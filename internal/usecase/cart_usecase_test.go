package usecase

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Tx内外で同じmockを使う
func newCartFixture() (*CartUsecase, *CartRepoMock, *CartItemRepoMock, *ProductRepoMock) {
	rs := newTxReposMock()
	tm := &TxManagerMock{Repos: rs}
	tm.On("WithinTx", mock.Anything).Return(nil)
	return NewCartUsecase(tm, rs.carts, rs.cartItems, rs.products), rs.carts, rs.cartItems, rs.products
}

var activeCart = model.Cart{ID: 3, UserID: 7, Status: model.CartStatusActive}

func TestGetCart_CreatesEmpty(t *testing.T) {
	uc, carts, items, products := newCartFixture()
	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(7)).Return(activeCart, nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{}, nil)
	products.On("FindByIDs", mock.Anything, []int64{}).Return(map[int64]model.Product{}, nil)

	res, err := uc.GetCart(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.ID)
	assert.Empty(t, res.Items)
	assert.Equal(t, "0.00", res.Total)
}

func TestGetCart_UsesLivePrice(t *testing.T) {
	uc, carts, items, products := newCartFixture()
	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(7)).Return(activeCart, nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 1, CartID: 3, ProductID: 10, Quantity: 2},
		{ID: 2, CartID: 3, ProductID: 11, Quantity: 1},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{10, 11}).Return(map[int64]model.Product{
		10: {ID: 10, Name: "Mug", Price: price("12.50"), IsActive: true},
		11: {ID: 11, Name: "Tea", Price: price("3.00"), IsActive: true},
	}, nil)

	res, err := uc.GetCart(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "12.50", res.Items[0].UnitPrice)
	assert.Equal(t, "25.00", res.Items[0].LineTotal)
	assert.Equal(t, "28.00", res.Total)
}

func TestAddToCart_MergesIntoExistingLine(t *testing.T) {
	uc, carts, items, products := newCartFixture()
	p := model.Product{ID: 10, Name: "Mug", Price: price("10.00"), Stock: 9, IsActive: true}
	products.On("FindByID", mock.Anything, int64(10)).Return(p, nil)
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(activeCart, nil)
	items.On("UpsertByCartAndProduct", mock.Anything, int64(3), int64(10), int64(2)).
		Return(model.CartItem{ID: 1, CartID: 3, ProductID: 10, Quantity: 5}, nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 1, CartID: 3, ProductID: 10, Quantity: 5},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{10}).Return(map[int64]model.Product{10: p}, nil)

	res, err := uc.AddToCart(context.Background(), 7, AddCartInput{ProductID: 10, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(5), res.Items[0].Quantity)
	assert.Equal(t, "50.00", res.Total)
	carts.AssertNotCalled(t, "GetOrCreateActiveByUserID", mock.Anything, mock.Anything)
}

func TestAddToCart_CheckedOutWhileWaitingUsesNewCart(t *testing.T) {
	uc, carts, items, products := newCartFixture()
	p := model.Product{ID: 10, Name: "Mug", Price: price("10.00"), Stock: 9, IsActive: true}
	fresh := model.Cart{ID: 4, UserID: 7, Status: model.CartStatusActive}
	products.On("FindByID", mock.Anything, int64(10)).Return(p, nil)
	// ロック待ちの間にカート3がチェックアウトされた
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{}, repo.ErrNotFound).Once()
	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(7)).Return(fresh, nil).Once()
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(fresh, nil).Once()
	items.On("UpsertByCartAndProduct", mock.Anything, int64(4), int64(10), int64(1)).
		Return(model.CartItem{ID: 9, CartID: 4, ProductID: 10, Quantity: 1}, nil)
	items.On("ListByCartID", mock.Anything, int64(4)).Return([]model.CartItem{
		{ID: 9, CartID: 4, ProductID: 10, Quantity: 1},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{10}).Return(map[int64]model.Product{10: p}, nil)

	res, err := uc.AddToCart(context.Background(), 7, AddCartInput{ProductID: 10, Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.ID)
	items.AssertNotCalled(t, "UpsertByCartAndProduct", mock.Anything, int64(3), mock.Anything, mock.Anything)
}

func TestAddToCart_LockTimeoutIsConflict(t *testing.T) {
	uc, carts, items, products := newCartFixture()
	products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{ID: 10, IsActive: true}, nil)
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{}, repo.ErrConflict)

	_, err := uc.AddToCart(context.Background(), 7, AddCartInput{ProductID: 10, Quantity: 1})

	require.ErrorIs(t, err, ErrCheckoutConflict)
	items.AssertNotCalled(t, "UpsertByCartAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToCart_Validation(t *testing.T) {
	uc, _, _, products := newCartFixture()

	_, err := uc.AddToCart(context.Background(), 7, AddCartInput{ProductID: 10, Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)

	products.On("FindByID", mock.Anything, int64(404)).Return(model.Product{}, repo.ErrNotFound)
	_, err = uc.AddToCart(context.Background(), 7, AddCartInput{ProductID: 404, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	products.On("FindByID", mock.Anything, int64(11)).Return(model.Product{ID: 11, IsActive: false}, nil)
	_, err = uc.AddToCart(context.Background(), 7, AddCartInput{ProductID: 11, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCartItem_OtherUsersLineIsNotFound(t *testing.T) {
	uc, carts, items, _ := newCartFixture()
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(activeCart, nil)
	// 別カートの明細
	items.On("FindByID", mock.Anything, int64(50)).Return(model.CartItem{ID: 50, CartID: 99, ProductID: 10, Quantity: 1}, nil)

	_, err := uc.UpdateCartItem(context.Background(), 7, 50, UpdateCartItemInput{Quantity: 4})

	require.ErrorIs(t, err, ErrNotFound)
	items.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCartItem_ReplacesQuantity(t *testing.T) {
	uc, carts, items, products := newCartFixture()
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(activeCart, nil)
	items.On("FindByID", mock.Anything, int64(1)).Return(model.CartItem{ID: 1, CartID: 3, ProductID: 10, Quantity: 1}, nil)
	items.On("UpdateQuantity", mock.Anything, int64(1), int64(4)).Return(nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 1, CartID: 3, ProductID: 10, Quantity: 4},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{10}).Return(map[int64]model.Product{
		10: {ID: 10, Name: "Mug", Price: price("1.25"), IsActive: true},
	}, nil)

	res, err := uc.UpdateCartItem(context.Background(), 7, 1, UpdateCartItemInput{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, "5.00", res.Total)
}

func TestDeleteCartItem_NoActiveCart(t *testing.T) {
	uc, carts, items, _ := newCartFixture()
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{}, repo.ErrNotFound)

	_, err := uc.DeleteCartItem(context.Background(), 7, 1)

	require.ErrorIs(t, err, ErrNotFound)
	items.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

func TestDeleteCartItem_Removes(t *testing.T) {
	uc, carts, items, products := newCartFixture()
	carts.On("LockActiveByUserID", mock.Anything, int64(7)).Return(activeCart, nil)
	items.On("FindByID", mock.Anything, int64(1)).Return(model.CartItem{ID: 1, CartID: 3, ProductID: 10, Quantity: 1}, nil)
	items.On("DeleteByID", mock.Anything, int64(1)).Return(nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{}, nil)
	products.On("FindByIDs", mock.Anything, []int64{}).Return(map[int64]model.Product{}, nil)

	res, err := uc.DeleteCartItem(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}
