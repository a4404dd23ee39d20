package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AgriNITMZ/agriapp-backend/api/controllers"
	"github.com/AgriNITMZ/agriapp-backend/api/routes"
	"github.com/AgriNITMZ/agriapp-backend/internal/address"
	"github.com/AgriNITMZ/agriapp-backend/internal/analytics"
	"github.com/AgriNITMZ/agriapp-backend/internal/auth"
	"github.com/AgriNITMZ/agriapp-backend/internal/cart"
	"github.com/AgriNITMZ/agriapp-backend/internal/chat"
	"github.com/AgriNITMZ/agriapp-backend/internal/content"
	"github.com/AgriNITMZ/agriapp-backend/internal/notifications"
	"github.com/AgriNITMZ/agriapp-backend/internal/orders"
	"github.com/AgriNITMZ/agriapp-backend/internal/payments"
	"github.com/AgriNITMZ/agriapp-backend/internal/products"
	"github.com/AgriNITMZ/agriapp-backend/internal/shipments"
	"github.com/AgriNITMZ/agriapp-backend/internal/users"
	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/metrics"
	"github.com/AgriNITMZ/agriapp-backend/pkg/migrate"
	"github.com/AgriNITMZ/agriapp-backend/pkg/razorpay"
	"github.com/AgriNITMZ/agriapp-backend/pkg/redis"
	"github.com/AgriNITMZ/agriapp-backend/pkg/shiprocket"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	registry := metrics.NewRegistry(promRegistry)

	gateway, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	var courier shiprocket.Provider
	if cfg.Shiprocket.Configured() {
		courier, err = shiprocket.NewClient(context.Background(), cfg.Shiprocket, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create shiprocket client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "shiprocket credentials missing, using sandbox courier")
		courier = shiprocket.NewSandbox(cfg.Shiprocket.PickupLocation)
	}

	gemini, err := chat.NewGeminiResponder(context.Background(), cfg.Gemini)
	if err != nil {
		logg.Error(context.Background(), "failed to create gemini client", err)
		os.Exit(1)
	}
	var llm chat.Responder
	if gemini != nil {
		llm = gemini
		defer func() {
			if err := gemini.Close(); err != nil {
				logg.Error(context.Background(), "error closing gemini client", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "gemini api key missing, chatbot limited to faq answers")
	}

	authService, err := auth.NewService(dbClient.DB(), redisClient, cfg.JWT, cfg.Password, cfg.AuthRateLimit, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(dbClient.DB(), cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(products.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(dbClient.DB(), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, productsService, cartRepo, notificationsService, registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(gateway, ordersService, redisClient, registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	shipmentsService, err := shipments.NewService(courier, ordersRepo, dbClient, notificationsService, cfg.Shiprocket.PickupLocation, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipments service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(dbClient.DB(), redisClient, cfg.Cache, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	contentService, err := content.NewService(dbClient.DB(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create content service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(dbClient.DB(), llm, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
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
		Addr: addr,
		Handler: routes.New(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Metrics:  registry,
			Gatherer: promRegistry,

			Auth:          authService,
			Users:         usersService,
			Products:      productsService,
			Cart:          cartService,
			Addresses:     addressService,
			Orders:        ordersService,
			Payments:      paymentsService,
			Shipments:     shipmentsService,
			Notifications: notificationsService,
			Analytics:     analyticsService,
			Content:       contentService,
			Chat:          chatService,

			HealthChecks: map[string]controllers.Pinger{
				"postgres": dbClient,
				"redis":    redisClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
