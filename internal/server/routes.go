package server

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h Handlers, auth, admin []echo.MiddlewareFunc) {
	//公開
	h.Product.RegisterRoutes(e)

	//ログインユーザー
	h.Auth.RegisterRoutes(e, auth...)
	h.Cart.RegisterRoutes(e, auth...)
	h.Checkout.RegisterRoutes(e, auth...)
	h.Order.RegisterRoutes(e, auth...)
	h.Address.RegisterRoutes(e, auth...)
	h.Review.RegisterRoutes(e, auth...)

	//管理者
	h.AdminProduct.RegisterRoutes(e, admin...)
	h.AdminOrder.RegisterRoutes(e, admin...)
	h.Category.RegisterRoutes(e, admin...)
}
