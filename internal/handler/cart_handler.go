package handler

import (
	"context"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (usecase.CartResponse, error)
	AddToCart(ctx context.Context, userID int64, in usecase.AddCartInput) (usecase.CartResponse, error)
	UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in usecase.UpdateCartItemInput) (usecase.CartResponse, error)
	DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (usecase.CartResponse, error)
}

// /cartのHTTP
type CartHandler struct {
	uc CartService
}

// DI
func NewCartHandler(uc CartService) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// /cart, /cart/items/:id を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, auth ...echo.MiddlewareFunc) {
	g := e.Group("/cart", auth...)

	g.GET("", h.getCart)
	g.POST("/items", h.addToCart)
	g.PATCH("/items/:id", h.patchItem)
	g.DELETE("/items/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.AddToCart(c.Request().Context(), userID, usecase.AddCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	itemID, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.UpdateCartItem(c.Request().Context(), userID, itemID, usecase.UpdateCartItemInput{
		Quantity: req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	itemID, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.DeleteCartItem(c.Request().Context(), userID, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
