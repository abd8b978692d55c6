package handler

import (
	"context"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderService interface {
	ListMyOrders(ctx context.Context, userID int64, page, limit int) (usecase.OrderListOutput, error)
	GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (usecase.OrderOutput, error)
	AdminUpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in usecase.AdminUpdateOrderStatusInput) (usecase.OrderOutput, error)
}

type OrderHandler struct {
	uc OrderService
}

func NewOrderHandler(uc OrderService) *OrderHandler {
	return &OrderHandler{uc: uc}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, auth ...echo.MiddlewareFunc) {
	g := e.Group("/orders", auth...)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	page, limit, ok := parsePaging(c, 20)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid paging")
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	orderID, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
