package middleware

import (
	"net/http"

	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

// トークン発行後に削除・停止されたユーザーを弾く。AuthJWTの後に置く
func ActiveUserGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("authentication credentials were not provided"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, errorJSON("internal server error"))
			}
			if user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("invalid or expired token"))
			}
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("user is disabled"))
			}

			return next(c)
		}
	}
}
