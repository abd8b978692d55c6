package middleware

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthJWTの後ろに置く。roleはcontextから読むだけでDBは見ない

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("authentication credentials were not provided"))
			}

			if !usecase.CanAdminister(model.Role(role)) {
				return c.JSON(http.StatusForbidden, errorJSON("you do not have permission to perform this action"))
			}

			return next(c)
		}
	}
}
