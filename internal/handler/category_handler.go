package handler

import (
	"context"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CategoryService interface {
	ListCategories(ctx context.Context) ([]usecase.CategoryDTO, error)
	AdminCreateCategory(ctx context.Context, adminUserID int64, name string) (usecase.CategoryDTO, error)
}

type CategoryHandler struct {
	uc CategoryService
}

func NewCategoryHandler(uc CategoryService) *CategoryHandler {
	return &CategoryHandler{uc: uc}
}

type CategoryRequest struct {
	Name string `json:"name"`
}

// 一覧は公開、作成は管理者のみ
func (h *CategoryHandler) RegisterRoutes(e *echo.Echo, admin ...echo.MiddlewareFunc) {
	e.GET("/products/categories", h.list)
	e.POST("/admin/categories", h.create, admin...)
}

func (h *CategoryHandler) list(c echo.Context) error {
	out, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CategoryHandler) create(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AdminCreateCategory(c.Request().Context(), adminID, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
