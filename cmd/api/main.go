package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/messaging"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	outboxRepo := infraRepo.NewOutboxGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB, cfg.CheckoutLockTimeout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	//リプレイキャッシュ（REDIS_ADDRが空なら無し）
	var replay usecase.ReplayCache
	if cfg.RedisAddr != "" {
		client := cache.NewClient(cfg.RedisAddr)
		defer client.Close()
		rc := cache.NewReplayCache(client, cfg.ReplayTTL)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, replay cache still enabled", "step", "startup", "error", err.Error())
		}
		replay = rc
	}

	//outboxリレー（KAFKA_BROKERSが空なら無し）
	if len(cfg.KafkaBrokers) > 0 {
		pub := messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.KafkaBrokers, cfg.OutboxTopic), log)
		defer pub.Close()
		relay := messaging.NewOutboxRelay(outboxRepo, pub, cfg.OutboxPollInterval, log)
		relayDone := relay.Start(ctx)
		//pub.Close / sqlDB.Close より先に、送信中の1回を終わらせる
		defer func() {
			stop()
			<-relayDone
		}()
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo))
	productUC := usecase.NewProductUsecase(txm, productRepo, categoryRepo)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartItemRepo, productRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txm, orderRepo, replay, metrics.NewCheckoutMetrics(reg), log)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo)
	reviewUC := usecase.NewReviewUsecase(productRepo, reviewRepo)

	e := server.New(server.Deps{
		Config:   cfg,
		Log:      log,
		Registry: reg,
		Users:    userRepo,
		DB:       sqlDB,
		Handlers: server.Handlers{
			Auth:         handler.NewAuthHandler(authUC),
			Product:      handler.NewProductHandler(productUC),
			AdminProduct: handler.NewAdminProductHandler(productUC),
			Cart:         handler.NewCartHandler(cartUC),
			Checkout:     handler.NewCheckoutHandler(checkoutUC),
			Order:        handler.NewOrderHandler(orderUC),
			AdminOrder:   handler.NewAdminOrderHandler(orderUC),
			Address:      handler.NewAddressHandler(addressUC),
			Category:     handler.NewCategoryHandler(categoryUC),
			Review:       handler.NewReviewHandler(reviewUC),
		},
	})

	//Server起動
	return server.Start(ctx, e, cfg.Addr(), log)
}
