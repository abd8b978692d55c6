package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者向けの注文API
type AdminOrderHandler struct {
	uc OrderService
}

func NewAdminOrderHandler(uc OrderService) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type AdminUpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// adminにはJWT + ADMIN限定のmiddlewareを渡す
func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, admin ...echo.MiddlewareFunc) {
	g := e.Group("/admin/orders", admin...)
	g.PUT("/:id/status", h.updateStatus)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	var req AdminUpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AdminUpdateStatus(c.Request().Context(), adminID, orderID, usecase.AdminUpdateOrderStatusInput{
		Status: req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
