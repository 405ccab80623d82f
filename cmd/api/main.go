package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/kailasramasamy/martly-backend/api/routes"
	"github.com/kailasramasamy/martly-backend/internal/cart"
	checkoutsvc "github.com/kailasramasamy/martly-backend/internal/checkout"
	"github.com/kailasramasamy/martly-backend/internal/gateway"
	orderssvc "github.com/kailasramasamy/martly-backend/internal/orders"
	"github.com/kailasramasamy/martly-backend/internal/serviceability"
	"github.com/kailasramasamy/martly-backend/pkg/config"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
	"github.com/kailasramasamy/martly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	commerce, err := gateway.NewClient(cfg.Commerce)
	if err != nil {
		logg.Error(context.Background(), "failed to build commerce client", err)
		os.Exit(1)
	}

	cartStore := cart.NewStore()
	resolver := serviceability.NewResolver(commerce, redisClient, cfg.Checkout.ServiceabilityTTL, logg)

	checkoutService, err := checkoutsvc.NewService(cartStore, commerce, resolver, cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersOrch, err := orderssvc.NewOrchestrator(commerce, checkoutService, cartStore, redisClient, cfg.Checkout.SubmitGuardTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders orchestrator", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, commerce, cartStore, checkoutService, ordersOrch),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
