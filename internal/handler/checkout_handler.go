package handler

import (
	"context"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const idempotencyKeyHeader = "Idempotency-Key"

type CheckoutService interface {
	Checkout(ctx context.Context, userID int64, in usecase.CheckoutInput) (usecase.CheckoutResult, error)
}

type CheckoutHandler struct {
	uc CheckoutService
}

func NewCheckoutHandler(uc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutRequest struct {
	ShippingAddressID *int64 `json:"shipping_address_id"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, auth ...echo.MiddlewareFunc) {
	e.POST("/checkout", h.checkout, auth...)
}

// 新規作成は201、同じキーの再送は200
func (h *CheckoutHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.ShippingAddressID != nil && *req.ShippingAddressID <= 0 {
		return errorJSON(c, http.StatusBadRequest, "invalid shipping_address_id")
	}

	res, err := h.uc.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		ShippingAddressID: req.ShippingAddressID,
		IdempotencyKey:    c.Request().Header.Get(idempotencyKeyHeader),
	})
	if err != nil {
		return writeError(c, err)
	}

	if res.Replayed {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}
