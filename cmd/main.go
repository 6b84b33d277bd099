package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/SergeyBogomolovv/storefront-orders/docs"
	"github.com/SergeyBogomolovv/storefront-orders/internal/app"
	"github.com/SergeyBogomolovv/storefront-orders/internal/config"
	"github.com/SergeyBogomolovv/storefront-orders/internal/handler"
	"github.com/SergeyBogomolovv/storefront-orders/internal/middleware"
	"github.com/SergeyBogomolovv/storefront-orders/internal/paypal"
	"github.com/SergeyBogomolovv/storefront-orders/internal/postgres"
	"github.com/SergeyBogomolovv/storefront-orders/internal/pricing"
	"github.com/SergeyBogomolovv/storefront-orders/internal/repo"
	"github.com/SergeyBogomolovv/storefront-orders/internal/service"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/cache"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/trm"
)

// @title           Storefront Orders API
// @version         1.0
// @description     Order placement, payment capture and fulfillment
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	shipping, tax, err := pricing.ParseRules(
		conf.Pricing.Currency,
		conf.Pricing.ShippingFlat,
		conf.Pricing.FreeShippingOver,
		conf.Pricing.TaxRate,
		conf.Pricing.TaxOnShipping,
	)
	panicIfErr("invalid pricing rules", err)

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	panicIfErr("failed to migrate db", postgres.Migrate(context.Background(), db))

	orderRepo := repo.NewPostgresRepo(db)
	catalogRepo := repo.NewCatalogRepo(db)
	txManager := trm.NewManager(db)
	orderCache := cache.NewLRUCache[[]byte](conf.Cache.Capacity, conf.Cache.TTL)
	gateway := paypal.NewClient(logger, conf.PayPal)

	orderService := service.NewOrderService(
		logger, txManager, orderRepo, catalogRepo, orderCache, gateway,
		service.Config{
			StoreTimeout: conf.Store.Timeout,
			Shipping:     shipping,
			Tax:          tax,
		},
	)

	auth := middleware.NewAuthenticator(logger, conf.Auth)
	httpHandler := handler.NewHTTPHandler(logger, orderService, auth.Authenticate, handler.PayPalConfig{
		ClientID: conf.PayPal.ClientID,
		Currency: conf.Pricing.Currency,
	})
	healthHandler := handler.NewHealthHandler(logger, orderRepo)
	kafkaHandler := handler.NewKafkaHandler(logger, conf.Kafka, orderService)
	handler.RegisterMetrics()

	app := app.New(logger, conf)

	app.SetHTTPHandlers(httpHandler, healthHandler)
	app.SetConsumers(kafkaHandler)
	app.SetStarters(orderCache)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	panicIfErr("failed to start app", app.Start(ctx))
	<-ctx.Done()
	panicIfErr("failed to stop app", app.Stop())
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}
