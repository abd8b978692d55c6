package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	tx           repo.TransactionManager
	productRepo  repo.ProductRepository
	categoryRepo repo.CategoryRepository
}

// DI
func NewProductUsecase(tx repo.TransactionManager, productRepo repo.ProductRepository, categoryRepo repo.CategoryRepository) *ProductUsecase {
	return &ProductUsecase{tx: tx, productRepo: productRepo, categoryRepo: categoryRepo}
}

type ProductDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Stock       int64     `json:"stock"`
	CategoryID  *int64    `json:"category_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page  int
	Limit int
}

type ProductListOutput struct {
	Items []ProductDTO `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, newError(ErrValidation, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, newError(ErrValidation, "invalid limit")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:  in.Page,
		Limit: in.Limit,
	})
	if err != nil {
		return ProductListOutput{}, internalError(err)
	}

	out := make([]ProductDTO, 0, len(items))
	for _, p := range items {
		out = append(out, toProductDTO(p))
	}
	return ProductListOutput{Items: out, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductDTO, error) {
	if productID <= 0 {
		return ProductDTO{}, newError(ErrValidation, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductDTO{}, fromRepo(err, "product not found")
	}
	//非公開は存在しない扱い
	if !p.IsActive {
		return ProductDTO{}, newError(ErrNotFound, "product not found")
	}
	return toProductDTO(p), nil
}

type AdminProductInput struct {
	Name        string
	Description string
	Price       string
	Stock       int64
	CategoryID  *int64
	IsActive    bool
}

func (in AdminProductInput) parse() (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, newError(ErrValidation, "name required")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || price.IsNegative() {
		return model.Product{}, newError(ErrValidation, "price must be a decimal >= 0")
	}
	if in.Stock < 0 {
		return model.Product{}, newError(ErrValidation, "stock must be >= 0")
	}
	return model.Product{
		Name:        name,
		Description: in.Description,
		Price:       price.Round(2),
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		IsActive:    in.IsActive,
	}, nil
}

// category_idは未指定ならnull。指定されたら存在するものだけ
func (u *ProductUsecase) checkCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	if *categoryID <= 0 {
		return newError(ErrValidation, "invalid category_id")
	}
	if _, err := u.categoryRepo.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newError(ErrValidation, "category not found")
		}
		return internalError(err)
	}
	return nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (ProductDTO, error) {
	if adminUserID <= 0 {
		return ProductDTO{}, newError(ErrUnauthorized, "unauthorized")
	}
	p, err := in.parse()
	if err != nil {
		return ProductDTO{}, err
	}
	if err := u.checkCategory(ctx, p.CategoryID); err != nil {
		return ProductDTO{}, err
	}

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return ProductDTO{}, internalError(err)
	}
	return toProductDTO(created), nil
}

// 在庫は在庫APIでのみ変える（ここのStockは無視される）
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (ProductDTO, error) {
	if adminUserID <= 0 {
		return ProductDTO{}, newError(ErrUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return ProductDTO{}, newError(ErrValidation, "invalid product id")
	}
	p, err := in.parse()
	if err != nil {
		return ProductDTO{}, err
	}
	if err := u.checkCategory(ctx, p.CategoryID); err != nil {
		return ProductDTO{}, err
	}
	p.ID = productID

	if err := u.productRepo.Update(ctx, p); err != nil {
		return ProductDTO{}, fromRepo(err, "product not found")
	}
	updated, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductDTO{}, fromRepo(err, "product not found")
	}
	return toProductDTO(updated), nil
}

// 在庫の設定。履歴と監査ログも同じTxで書く
func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, adminUserID int64, productID int64, newStock int64, reason string) (ProductDTO, error) {
	if adminUserID <= 0 {
		return ProductDTO{}, newError(ErrUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return ProductDTO{}, newError(ErrValidation, "invalid product id")
	}
	if newStock < 0 {
		return ProductDTO{}, newError(ErrValidation, "stock must be >= 0")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ProductDTO{}, newError(ErrValidation, "reason required")
	}

	var out ProductDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//チェックアウトと同じく行ロックしてから書き換える
		p, err := r.Products().GetForUpdate(ctx, productID)
		if err != nil {
			return fromRepo(err, "product not found")
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			return err
		}

		adj := model.NewStockAdjustment(productID, adminUserID, p.Stock, newStock, reason)
		if err := r.Inventory().CreateAdjustment(ctx, adj); err != nil {
			return err
		}

		//「誰が」「何を」「どの対象に」「どう変えたか」を残す
		entry, err := model.NewAuditLog(adminUserID, model.AuditActionUpdateStock, model.AuditResourceProduct, productID,
			map[string]int64{"stock": p.Stock},
			map[string]int64{"stock": newStock},
		)
		if err != nil {
			return err
		}
		if err := r.AuditLogs().Create(ctx, entry); err != nil {
			return err
		}

		p.Stock = newStock
		out = toProductDTO(p)
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return ProductDTO{}, err
		}
		return ProductDTO{}, fromRepo(err, "product not found")
	}
	return out, nil
}

func toProductDTO(p model.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}
