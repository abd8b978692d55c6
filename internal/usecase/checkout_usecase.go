package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxIdempotencyKeyLen = 255

// 確定済みチェックアウトのレスポンスを保存するキャッシュ
type ReplayCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type CheckoutRecorder interface {
	Observe(outcome string, elapsed time.Duration)
}

type CheckoutInput struct {
	ShippingAddressID *int64
	IdempotencyKey    string
}

type CheckoutResult struct {
	OrderID     int64  `json:"order_id"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
	Replayed    bool   `json:"replayed,omitempty"`
}

// CheckoutUsecase はカートを注文に変える。1回の試行は1トランザクションで、
// 全部コミットされるか全部ロールバックされるかのどちらか。
type CheckoutUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	cache   ReplayCache
	metrics CheckoutRecorder
	log     *slog.Logger
	now     func() time.Time
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	cache ReplayCache,
	metrics CheckoutRecorder,
	log *slog.Logger,
) *CheckoutUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutUsecase{
		tx:      tx,
		orders:  orders,
		cache:   cache,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (CheckoutResult, error) {
	start := u.now()
	phase := model.CheckoutPhaseIdle

	res, err := u.checkout(ctx, userID, in, &phase)

	outcome := checkoutOutcome(res, err)
	elapsed := u.now().Sub(start)
	if u.metrics != nil {
		u.metrics.Observe(outcome, elapsed)
	}

	attrs := []any{
		"step", "checkout",
		"phase", string(phase),
		"status", outcome,
		"user_id", userID,
		"duration_ms", elapsed.Milliseconds(),
	}
	switch outcome {
	case metrics.OutcomeCommitted, metrics.OutcomeReplayed:
		u.log.InfoContext(ctx, "checkout finished", append(attrs, "order_id", res.OrderID)...)
	case metrics.OutcomeError:
		u.log.ErrorContext(ctx, "checkout failed", append(attrs, "error", err.Error())...)
	default:
		u.log.WarnContext(ctx, "checkout rejected", append(attrs, "error", err.Error())...)
	}
	return res, err
}

func (u *CheckoutUsecase) checkout(ctx context.Context, userID int64, in CheckoutInput, phase *model.CheckoutPhase) (CheckoutResult, error) {
	if userID <= 0 {
		*phase = model.CheckoutPhaseRejected
		return CheckoutResult{}, newError(ErrUnauthorized, "unauthorized")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		*phase = model.CheckoutPhaseRejected
		return CheckoutResult{}, newError(ErrValidation, "invalid idempotency key")
	}

	// 同じキーなら同じ結果を返す（在庫には触らない）
	if key != "" {
		res, found, err := u.lookupReplay(ctx, userID, key)
		if err != nil {
			*phase = model.CheckoutPhaseRejected
			return CheckoutResult{}, err
		}
		if found {
			*phase = model.CheckoutPhaseCommitted
			return res, nil
		}
	} else {
		key = uuid.NewString()
	}

	var res CheckoutResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		res, err = u.placeOrder(ctx, r, userID, in.ShippingAddressID, key, phase)
		return err
	})
	if err != nil {
		*phase = phase.FailureExit()
		return CheckoutResult{}, checkoutError(err)
	}
	setPhase(phase, model.CheckoutPhaseCommitted)

	u.storeReplay(ctx, userID, key, res)
	return res, nil
}

// Tx内の本体。ここで返したエラーは全部ロールバックになる
func (u *CheckoutUsecase) placeOrder(
	ctx context.Context,
	r repo.TxRepos,
	userID int64,
	addressID *int64,
	key string,
	phase *model.CheckoutPhase,
) (CheckoutResult, error) {
	// 同じカートの二重確定を防ぐため、カート行を先にロック
	cart, err := r.Carts().LockActiveByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CheckoutResult{}, newError(ErrNoActiveCart, "no active cart")
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	if !CanAccessCart(userID, cart) {
		return CheckoutResult{}, newError(ErrNoActiveCart, "no active cart")
	}

	lines, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(lines) == 0 {
		return CheckoutResult{}, newError(ErrEmptyCart, "cart is empty")
	}

	if addressID != nil {
		addr, err := r.Addresses().FindByID(ctx, *addressID)
		if errors.Is(err, repo.ErrNotFound) {
			return CheckoutResult{}, newError(ErrAddressNotFound, "address not found")
		}
		if err != nil {
			return CheckoutResult{}, err
		}
		//他人の住所も「存在しない」扱い
		if !CanUseAddress(userID, addr) {
			return CheckoutResult{}, newError(ErrAddressNotFound, "address not found")
		}
	}

	// 検証（ロックなし）。ここで落ちれば何も書き換えていない
	setPhase(phase, model.CheckoutPhaseValidating)
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return CheckoutResult{}, err
	}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			return CheckoutResult{}, newError(ErrNotFound, fmt.Sprintf("product %d not found", l.ProductID))
		}
		if p.Stock < l.Quantity {
			return CheckoutResult{}, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   l.Quantity,
			}
		}
	}

	// 確保。商品IDの昇順でロックしてデッドロックを避ける
	setPhase(phase, model.CheckoutPhaseReserving)
	sorted := make([]model.CartItem, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	items := make([]model.OrderItem, 0, len(sorted))
	total := decimal.Zero
	for _, l := range sorted {
		p, err := r.Products().GetForUpdate(ctx, l.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return CheckoutResult{}, newError(ErrNotFound, fmt.Sprintf("product %d not found", l.ProductID))
		}
		if err != nil {
			return CheckoutResult{}, err
		}
		// 検証後に非公開にされた商品は売らない
		if !p.IsActive {
			return CheckoutResult{}, newError(ErrNotFound, fmt.Sprintf("product %d not found", l.ProductID))
		}

		//ロック後にもう一度確認
		if p.Stock < l.Quantity {
			return CheckoutResult{}, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   l.Quantity,
			}
		}
		ok, err := r.Inventory().ReserveStock(ctx, p.ID, l.Quantity)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !ok {
			return CheckoutResult{}, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   l.Quantity,
			}
		}

		//ロック時点の価格と名前で固定
		item := model.OrderItem{
			ProductID:           p.ID,
			ProductNameSnapshot: p.Name,
			UnitPrice:           p.Price,
			Quantity:            l.Quantity,
		}
		items = append(items, item)
		total = total.Add(item.LineTotal())
	}

	cartID := cart.ID
	order, err := r.Orders().Create(ctx, model.Order{
		UserID:         userID,
		CartID:         &cartID,
		AddressID:      addressID,
		Status:         model.OrderStatusPending,
		TotalAmount:    total,
		IdempotencyKey: key,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
		return CheckoutResult{}, err
	}

	//明細は履歴として残し、カートだけ閉じる
	if err := r.Carts().MarkCheckedOut(ctx, cart.ID); err != nil {
		return CheckoutResult{}, err
	}

	event, err := orderCreatedEvent(order, items, u.now())
	if err != nil {
		return CheckoutResult{}, err
	}
	if err := r.Outbox().Insert(ctx, event); err != nil {
		return CheckoutResult{}, err
	}

	return toCheckoutResult(order), nil
}

func (u *CheckoutUsecase) lookupReplay(ctx context.Context, userID int64, key string) (CheckoutResult, bool, error) {
	if u.cache != nil {
		raw, ok, err := u.cache.Get(ctx, replayKey(userID, key))
		if err != nil {
			// キャッシュが落ちていてもDBで判定できる
			u.log.WarnContext(ctx, "replay cache get failed", "step", "replay_lookup", "error", err.Error())
		} else if ok {
			var res CheckoutResult
			if err := json.Unmarshal(raw, &res); err == nil {
				res.Replayed = true
				return res, true, nil
			}
		}
	}

	existing, found, err := u.orders.FindByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return CheckoutResult{}, false, internalError(err)
	}
	if !found {
		return CheckoutResult{}, false, nil
	}

	res := toCheckoutResult(existing)
	u.storeReplay(ctx, userID, key, res)
	res.Replayed = true
	return res, true, nil
}

func (u *CheckoutUsecase) storeReplay(ctx context.Context, userID int64, key string, res CheckoutResult) {
	if u.cache == nil {
		return
	}
	res.Replayed = false
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := u.cache.Set(ctx, replayKey(userID, key), raw); err != nil {
		u.log.WarnContext(ctx, "replay cache set failed", "step", "replay_store", "order_id", res.OrderID, "error", err.Error())
	}
}

func replayKey(userID int64, key string) string {
	return fmt.Sprintf("checkout:%d:%s", userID, key)
}

func setPhase(phase *model.CheckoutPhase, next model.CheckoutPhase) {
	if phase.CanTransitionTo(next) {
		*phase = next
	}
}

// Txから返ってきたエラーを分類する
func checkoutError(err error) error {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return err
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	if errors.Is(err, repo.ErrConflict) || errors.Is(err, repo.ErrDuplicate) {
		return fromRepo(err, "")
	}
	return internalError(err)
}

func checkoutOutcome(res CheckoutResult, err error) string {
	switch {
	case err == nil && res.Replayed:
		return metrics.OutcomeReplayed
	case err == nil:
		return metrics.OutcomeCommitted
	case errors.Is(err, ErrCheckoutConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrInternal):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}

func toCheckoutResult(o model.Order) CheckoutResult {
	return CheckoutResult{
		OrderID:     o.ID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Status:      string(o.Status),
	}
}

func orderCreatedEvent(o model.Order, items []model.OrderItem, now time.Time) (model.OutboxEvent, error) {
	payload := model.OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Items:       make([]model.OrderCreatedPayItem, 0, len(items)),
		CreatedAt:   now.UTC(),
	}
	for _, it := range items {
		payload.Items = append(payload.Items, model.OrderCreatedPayItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.OutboxEvent{}, err
	}
	return model.OutboxEvent{
		EventID:      uuid.NewString(),
		EventType:    model.TopicOrderCreated,
		AggregateKey: fmt.Sprintf("order-%d", o.ID),
		Payload:      raw,
	}, nil
}
