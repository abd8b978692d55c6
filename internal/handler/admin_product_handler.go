package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者向けの商品・在庫API
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// priceは丸め誤差を避けるため文字列で受ける（"12.50"）
type AdminProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int64  `json:"stock"`
	CategoryID  *int64 `json:"category_id"`
	IsActive    bool   `json:"is_active"`
}

type AdminInventoryRequest struct {
	Stock  *int64 `json:"stock"`
	Reason string `json:"reason"`
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, admin ...echo.MiddlewareFunc) {
	g := e.Group("/admin", admin...)
	g.POST("/products", h.create)
	g.PUT("/products/:id", h.update)
	g.PUT("/inventory/:id", h.updateInventory)
}

func (h *AdminProductHandler) create(c echo.Context) error {
	var req AdminProductRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, toAdminProductInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) update(c echo.Context) error {
	id, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	var req AdminProductRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, toAdminProductInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	id, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	var req AdminInventoryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.Stock == nil {
		return errorJSON(c, http.StatusBadRequest, "stock required")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AdminUpdateInventory(c.Request().Context(), adminID, id, *req.Stock, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func toAdminProductInput(req AdminProductRequest) usecase.AdminProductInput {
	return usecase.AdminProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive,
	}
}
