package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, orderItems repo.OrderItemRepository) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, orderItems: orderItems}
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	AddressID   *int64            `json:"address_id"`
	Status      string            `json:"status"`
	TotalAmount string            `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 新しい順（created_at desc, id desc）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, newError(ErrUnauthorized, "unauthorized")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultOrderPageSize
	}
	if page < 1 {
		return OrderListOutput{}, newError(ErrValidation, "invalid page")
	}
	if limit < 1 || limit > maxOrderPageSize {
		return OrderListOutput{}, newError(ErrValidation, "invalid limit")
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, internalError(err)
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemsByOrder, err := u.orderItems.ListByOrderIDs(ctx, ids)
	if err != nil {
		return OrderListOutput{}, internalError(err)
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o, itemsByOrder[o.ID]))
	}
	return OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

// 他人の注文は403
func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, newError(ErrUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, newError(ErrValidation, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, fromRepo(err, "order not found")
	}
	if !CanAccessOrder(userID, o) {
		return OrderOutput{}, newError(ErrForbidden, "you do not have permission to access this order")
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	return toOrderOutput(o, items), nil
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// ステータス更新（Cancelledなら在庫戻し）。明細と金額は変えない
func (u *OrderUsecase) AdminUpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, newError(ErrUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, newError(ErrValidation, "invalid id")
	}
	next, ok := model.ParseOrderStatus(strings.TrimSpace(in.Status))
	if !ok {
		return OrderOutput{}, newError(ErrValidation, "invalid status")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order not found")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		// すでに同じなら何もしない
		if o.Status == next {
			out = toOrderOutput(o, items)
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return newError(ErrValidation, fmt.Sprintf("cannot change status from %s to %s", o.Status, next))
		}

		if next == model.OrderStatusCancelled {
			for _, it := range items {
				if err := r.Inventory().RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}

		//fromを条件に更新（同時更新の取りこぼし防止）
		if err := r.Orders().UpdateStatus(ctx, orderID, o.Status, next); err != nil {
			return err
		}

		entry, err := model.NewAuditLog(actorAdminUserID, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
			map[string]model.OrderStatus{"status": o.Status},
			map[string]model.OrderStatus{"status": next},
		)
		if err != nil {
			return err
		}
		if err := r.AuditLogs().Create(ctx, entry); err != nil {
			return err
		}

		o.Status = next
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderOutput{}, err
		}
		if errors.Is(err, repo.ErrConflict) {
			return OrderOutput{}, fromRepo(err, "")
		}
		return OrderOutput{}, internalError(err)
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}

	return OrderOutput{
		ID:          o.ID,
		UserID:      o.UserID,
		AddressID:   o.AddressID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		Items:       outItems,
	}
}
