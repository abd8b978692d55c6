package usecase

import (
	"context"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

type AddressDTO struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	FullName      string  `json:"full_name"`
	Phone         string  `json:"phone"`
	Line1         string  `json:"line1"`
	Line2         string  `json:"line2"`
	City          string  `json:"city"`
	StateProvince string  `json:"state_province"`
	Country       string  `json:"country"`
	PostalCode    string  `json:"postal_code"`
	IsDefault     bool    `json:"is_default"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     *string `json:"updated_at,omitempty"`
}

// 作成と更新で同じ形
type AddressRequest struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	City          string `json:"city"`
	StateProvince string `json:"state_province"`
	Country       string `json:"country"`
	PostalCode    string `json:"postal_code"`
}

func (r AddressRequest) valid() bool {
	for _, s := range []string{r.FullName, r.Line1, r.City, r.Country, r.PostalCode} {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

type AddressUsecase struct {
	addresses repository.AddressRepository
}

func NewAddressUsecase(addresses repository.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, newError(ErrUnauthorized, "unauthorized")
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, newError(ErrUnauthorized, "unauthorized")
	}

	//入力チェック
	if !req.valid() {
		return AddressDTO{}, newError(ErrValidation, "full_name, line1, city, country and postal_code are required")
	}

	now := time.Now()
	a := model.Address{
		UserID:        userID,
		FullName:      strings.TrimSpace(req.FullName),
		Phone:         req.Phone,
		Line1:         strings.TrimSpace(req.Line1),
		Line2:         req.Line2,
		City:          strings.TrimSpace(req.City),
		StateProvince: req.StateProvince,
		Country:       strings.TrimSpace(req.Country),
		PostalCode:    strings.TrimSpace(req.PostalCode),
		IsDefault:     false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		return AddressDTO{}, internalError(err)
	}
	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, newError(ErrUnauthorized, "unauthorized")
	}
	if addressID <= 0 || !req.valid() {
		return AddressDTO{}, newError(ErrValidation, "invalid address")
	}

	current, err := u.owned(ctx, userID, addressID)
	if err != nil {
		return AddressDTO{}, err
	}

	current.FullName = strings.TrimSpace(req.FullName)
	current.Phone = req.Phone
	current.Line1 = strings.TrimSpace(req.Line1)
	current.Line2 = req.Line2
	current.City = strings.TrimSpace(req.City)
	current.StateProvince = req.StateProvince
	current.Country = strings.TrimSpace(req.Country)
	current.PostalCode = strings.TrimSpace(req.PostalCode)
	current.UpdatedAt = time.Now()

	if err := u.addresses.Update(ctx, current); err != nil {
		return AddressDTO{}, fromRepo(err, "address not found")
	}
	return toAddressDTO(&current), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return newError(ErrUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return newError(ErrValidation, "invalid id")
	}

	if _, err := u.owned(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.Delete(ctx, addressID); err != nil {
		return fromRepo(err, "address not found")
	}
	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return newError(ErrUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return newError(ErrValidation, "invalid id")
	}

	if _, err := u.owned(ctx, userID, addressID); err != nil {
		return err
	}

	//user内でdefaultは1つ
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return fromRepo(err, "address not found")
	}
	return nil
}

// 所有チェック（本人のみ）。無ければ404、他人なら403
func (u *AddressUsecase) owned(ctx context.Context, userID, addressID int64) (model.Address, error) {
	a, err := u.addresses.FindByID(ctx, addressID)
	if err != nil {
		return model.Address{}, fromRepo(err, "address not found")
	}
	if !CanUseAddress(userID, a) {
		return model.Address{}, newError(ErrForbidden, "forbidden")
	}
	return a, nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:            a.ID,
		UserID:        a.UserID,
		FullName:      a.FullName,
		Phone:         a.Phone,
		Line1:         a.Line1,
		Line2:         a.Line2,
		City:          a.City,
		StateProvince: a.StateProvince,
		Country:       a.Country,
		PostalCode:    a.PostalCode,
		IsDefault:     a.IsDefault,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	t := a.UpdatedAt.Format(time.RFC3339)
	dto.UpdatedAt = &t
	return dto
}
