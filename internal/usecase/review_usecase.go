package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const maxReviewCommentLen = 2000

// レビューの投稿と一覧。承認などのモデレーションは持たない
type ReviewUsecase struct {
	productRepo repo.ProductRepository
	reviewRepo  repo.ReviewRepository
}

func NewReviewUsecase(productRepo repo.ProductRepository, reviewRepo repo.ReviewRepository) *ReviewUsecase {
	return &ReviewUsecase{productRepo: productRepo, reviewRepo: reviewRepo}
}

type ReviewInput struct {
	Rating  int
	Comment string
}

type ReviewDTO struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewListOutput struct {
	Items []ReviewDTO `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func (u *ReviewUsecase) CreateReview(ctx context.Context, userID, productID int64, in ReviewInput) (ReviewDTO, error) {
	if userID <= 0 {
		return ReviewDTO{}, newError(ErrUnauthorized, "unauthorized")
	}
	if !model.ValidRating(in.Rating) {
		return ReviewDTO{}, newError(ErrValidation, "rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxReviewCommentLen {
		return ReviewDTO{}, newError(ErrValidation, "comment too long")
	}
	if err := u.publicProduct(ctx, productID); err != nil {
		return ReviewDTO{}, err
	}

	rv, err := u.reviewRepo.Create(ctx, model.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    in.Rating,
		Comment:   comment,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return ReviewDTO{}, newError(ErrAlreadyExists, "you have already reviewed this product")
	}
	if err != nil {
		return ReviewDTO{}, internalError(err)
	}
	return toReviewDTO(rv), nil
}

func (u *ReviewUsecase) ListProductReviews(ctx context.Context, productID int64, page, limit int) (ReviewListOutput, error) {
	if page < 1 {
		return ReviewListOutput{}, newError(ErrValidation, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return ReviewListOutput{}, newError(ErrValidation, "invalid limit")
	}
	if err := u.publicProduct(ctx, productID); err != nil {
		return ReviewListOutput{}, err
	}

	list, total, err := u.reviewRepo.ListByProductID(ctx, productID, page, limit)
	if err != nil {
		return ReviewListOutput{}, internalError(err)
	}
	items := make([]ReviewDTO, 0, len(list))
	for _, rv := range list {
		items = append(items, toReviewDTO(rv))
	}
	return ReviewListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// 非公開の商品は存在しない扱い
func (u *ReviewUsecase) publicProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return newError(ErrValidation, "invalid product id")
	}
	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return fromRepo(err, "product not found")
	}
	if !p.IsActive {
		return newError(ErrNotFound, "product not found")
	}
	return nil
}

func toReviewDTO(rv model.Review) ReviewDTO {
	return ReviewDTO{
		ID:        rv.ID,
		UserID:    rv.UserID,
		ProductID: rv.ProductID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
	}
}
