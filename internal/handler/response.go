package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// エラーは全部 {detail} で返す
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	he := usecase.ToHTTPError(err)

	//500は中身をログにだけ出す
	if he.Status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"step", "handler",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err.Error(),
		)
	}
	return c.JSON(he.Status, ErrorResponse{Detail: he.Message})
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Detail: msg})
}

// AuthJWTが入れたuser_id
func getUserIDFromContext(c echo.Context) (int64, bool) {
	userID, ok := c.Get(middleware.CtxUserIDKey).(int64)
	return userID, ok && userID > 0
}

func parseIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page/limitのクエリ。未指定ならdefaultを使う
func parsePaging(c echo.Context, defaultLimit int) (int, int, bool) {
	page, limit := 1, defaultLimit
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}
