package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	repo "storefront/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// ヘルスチェックで叩く先（*sql.DB がそのまま満たす）
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Address      *handler.AddressHandler
	Category     *handler.CategoryHandler
	Review       *handler.ReviewHandler
}

type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry
	Users    repo.UserRepository
	DB       Pinger
	Handlers Handlers
}

func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(metrics.NewServerMetrics(d.Registry).Middleware())

	// 認証あり / 管理者のみ
	auth := []echo.MiddlewareFunc{middleware.AuthJWT(d.Config), middleware.ActiveUserGuard(d.Users)}
	admin := append(append([]echo.MiddlewareFunc{}, auth...), middleware.AdminRoleGuard())

	RegisterRoutes(e, d.Handlers, auth, admin)

	e.GET("/healthz", healthz(d.DB))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Registry)))

	return e
}

func healthz(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ctxが終わったらgracefulに止める
func Start(ctx context.Context, e *echo.Echo, addr string, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", "step", "server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("server shutting down", "step", "server")
	return e.Shutdown(shutdownCtx)
}
