package handler

import (
	"context"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ReviewService interface {
	CreateReview(ctx context.Context, userID, productID int64, in usecase.ReviewInput) (usecase.ReviewDTO, error)
	ListProductReviews(ctx context.Context, productID int64, page, limit int) (usecase.ReviewListOutput, error)
}

// /products/:id/reviews
type ReviewHandler struct {
	uc ReviewService
}

func NewReviewHandler(uc ReviewService) *ReviewHandler {
	return &ReviewHandler{uc: uc}
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// 一覧は公開、投稿はログインユーザー
func (h *ReviewHandler) RegisterRoutes(e *echo.Echo, auth ...echo.MiddlewareFunc) {
	e.GET("/products/:id/reviews", h.list)
	e.POST("/products/:id/reviews", h.create, auth...)
}

func (h *ReviewHandler) list(c echo.Context) error {
	productID, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}
	page, limit, ok := parsePaging(c, 20)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid paging")
	}

	out, err := h.uc.ListProductReviews(c.Request().Context(), productID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReviewHandler) create(c echo.Context) error {
	productID, ok := parseIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	userID, ok := getUserIDFromContext(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.CreateReview(c.Request().Context(), userID, productID, usecase.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
