package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "storefront/internal/repository"
)

var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 他人のリソース
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 email重複
	ErrEmailTaken = errors.New("email already used")
	//409 カテゴリ名・レビューの重複
	ErrAlreadyExists = errors.New("already exists")

	// チェックアウト
	ErrNoActiveCart      = errors.New("no active cart")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAddressNotFound   = errors.New("address not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	//ロック待ち・デッドロック・同時作成。リトライしてよい
	ErrCheckoutConflict = errors.New("checkout conflict")

	//500
	ErrInternal = errors.New("internal error")
)

var kindStatus = map[error]int{
	ErrValidation:        http.StatusBadRequest,
	ErrUnauthorized:      http.StatusUnauthorized,
	ErrForbidden:         http.StatusForbidden,
	ErrNotFound:          http.StatusNotFound,
	ErrEmailTaken:        http.StatusConflict,
	ErrAlreadyExists:     http.StatusConflict,
	ErrNoActiveCart:      http.StatusNotFound,
	ErrEmptyCart:         http.StatusBadRequest,
	ErrAddressNotFound:   http.StatusNotFound,
	ErrInsufficientStock: http.StatusBadRequest,
	ErrCheckoutConflict:  http.StatusConflict,
	ErrInternal:          http.StatusInternalServerError,
}

// handlerがそのままレスポンスにできるエラー。
// Kindはerrors.Isで種類を判定するため、Causeはログ用（レスポンスには出さない）
type HTTPError struct {
	Status  int
	Message string
	Kind    error
	Cause   error
}

func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 種類付きのエラーを作る。ステータスは種類から決まる
func newError(kind error, message string) error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &HTTPError{Status: status, Message: message, Kind: kind}
}

// 他パッケージ（validatorなど）から種類付きのエラーを作る
func NewKindError(kind error, message string) error {
	return newError(kind, message)
}

// 想定外のエラー。中身はCauseに残してレスポンスは固定文言
func internalError(cause error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Kind:    ErrInternal,
		Cause:   cause,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 在庫不足。どの商品がいくつ足りないかを返す
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product: '%s'. Available: %d, Requested: %d",
		e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// どんなエラーでもHTTPErrorにそろえる（handlerの入口）
func ToHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return &HTTPError{
			Status:  http.StatusBadRequest,
			Message: ise.Error(),
			Kind:    ErrInsufficientStock,
		}
	}
	if he, ok := AsHTTPError(err); ok {
		return he
	}
	for kind, status := range kindStatus {
		if kind != ErrInternal && errors.Is(err, kind) {
			return &HTTPError{Status: status, Message: kind.Error(), Kind: kind}
		}
	}
	return internalError(err).(*HTTPError)
}

// repositoryのエラーをusecaseのエラーにする
func fromRepo(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return newError(ErrNotFound, notFound)
	case errors.Is(err, repo.ErrConflict), errors.Is(err, repo.ErrDuplicate):
		return &HTTPError{
			Status:  http.StatusConflict,
			Message: "conflicting concurrent update, please retry",
			Kind:    ErrCheckoutConflict,
			Cause:   err,
		}
	default:
		return internalError(err)
	}
}
