package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const maxCategoryNameLen = 255

type CategoryUsecase struct {
	categoryRepo repo.CategoryRepository
}

func NewCategoryUsecase(categoryRepo repo.CategoryRepository) *CategoryUsecase {
	return &CategoryUsecase{categoryRepo: categoryRepo}
}

type CategoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (u *CategoryUsecase) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	list, err := u.categoryRepo.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	out := make([]CategoryDTO, 0, len(list))
	for _, c := range list {
		out = append(out, CategoryDTO{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (u *CategoryUsecase) AdminCreateCategory(ctx context.Context, adminUserID int64, name string) (CategoryDTO, error) {
	if adminUserID <= 0 {
		return CategoryDTO{}, newError(ErrUnauthorized, "unauthorized")
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxCategoryNameLen {
		return CategoryDTO{}, newError(ErrValidation, "name required (max 255)")
	}

	c, err := u.categoryRepo.Create(ctx, model.Category{Name: name})
	if errors.Is(err, repo.ErrDuplicate) {
		return CategoryDTO{}, newError(ErrAlreadyExists, "category already exists")
	}
	if err != nil {
		return CategoryDTO{}, internalError(err)
	}
	return CategoryDTO{ID: c.ID, Name: c.Name}, nil
}
