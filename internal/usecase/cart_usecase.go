package usecase

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// 合計は常に現在の商品価格で計算します（注文とは違いスナップショットしない）。
type CartUsecase struct {
	tx           repo.TransactionManager
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		tx:           tx,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type CartResponse struct {
	ID    int64              `json:"id"`
	Items []CartItemResponse `json:"items"`
	Total string             `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newError(ErrUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, fromRepo(err, "cart not found")
	}
	return u.buildCartResponse(ctx, cart)
}

// AddToCart は明細追加。同一商品は1行にまとめて数量を足す。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newError(ErrUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, newError(ErrValidation, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, newError(ErrValidation, "quantity must be greater than 0")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err != nil {
		return CartResponse{}, fromRepo(err, "product not found")
	}
	if !p.IsActive {
		return CartResponse{}, newError(ErrNotFound, "product not found")
	}

	// カート行をロックしてから書く。チェックアウト済みのカートには足さない
	var cart model.Cart
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		cart, err = lockActiveCart(ctx, r, userID)
		if err != nil {
			return err
		}
		// INSERT ... ON CONFLICT で加算（同時追加でも2行にならない）
		_, err = r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, in.ProductID, in.Quantity)
		return err
	})
	if err != nil {
		return CartResponse{}, fromRepo(err, "cart item not found")
	}

	return u.buildCartResponse(ctx, cart)
}

// 数量を置き換える。自分のACTIVEカートの明細以外は404
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newError(ErrUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, newError(ErrValidation, "invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, newError(ErrValidation, "quantity must be greater than 0")
	}

	var cart model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		if cart, err = ownedLine(ctx, r, userID, cartItemID); err != nil {
			return err
		}
		return r.CartItems().UpdateQuantity(ctx, cartItemID, in.Quantity)
	})
	if err != nil {
		return CartResponse{}, fromRepo(err, "cart item not found")
	}
	return u.buildCartResponse(ctx, cart)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newError(ErrUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, newError(ErrValidation, "invalid id")
	}

	var cart model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		if cart, err = ownedLine(ctx, r, userID, cartItemID); err != nil {
			return err
		}
		return r.CartItems().DeleteByID(ctx, cartItemID)
	})
	if err != nil {
		return CartResponse{}, fromRepo(err, "cart item not found")
	}
	return u.buildCartResponse(ctx, cart)
}

// ACTIVEカートを FOR UPDATE で取る。無い、または待っている間に
// チェックアウトされた場合は作り直してもう一度ロックする
func lockActiveCart(ctx context.Context, r repo.TxRepos, userID int64) (model.Cart, error) {
	for attempt := 0; attempt < 3; attempt++ {
		cart, err := r.Carts().LockActiveByUserID(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, err
		}
		if _, err := r.Carts().GetOrCreateActiveByUserID(ctx, userID); err != nil {
			return model.Cart{}, err
		}
	}
	return model.Cart{}, repo.ErrConflict
}

// 明細がuserのACTIVEカートに属しているか確認してカートを返す（カート行はロック済み）
func ownedLine(ctx context.Context, r repo.TxRepos, userID, cartItemID int64) (model.Cart, error) {
	cart, err := r.Carts().LockActiveByUserID(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	if !CanAccessCart(userID, cart) {
		return model.Cart{}, repo.ErrNotFound
	}

	item, err := r.CartItems().FindByID(ctx, cartItemID)
	if err != nil {
		return model.Cart{}, err
	}
	if item.CartID != cart.ID {
		return model.Cart{}, repo.ErrNotFound
	}
	return cart, nil
}

// 明細をまとめてCartResponseを作る。価格は現在の商品価格
func (u *CartUsecase) buildCartResponse(ctx context.Context, cart model.Cart) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, internalError(err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return CartResponse{}, internalError(err)
	}

	respItems := make([]CartItemResponse, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			// 削除済み商品の行は表示しない
			continue
		}
		line := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		respItems = append(respItems, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			UnitPrice: p.Price.StringFixed(2),
			Quantity:  it.Quantity,
			LineTotal: line.StringFixed(2),
		})
		total = total.Add(line)
	}

	return CartResponse{ID: cart.ID, Items: respItems, Total: total.StringFixed(2)}, nil
}
