package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ReyGenteng/galaxy/internal/api"
	"github.com/ReyGenteng/galaxy/internal/app"
	"github.com/ReyGenteng/galaxy/internal/config"
	"github.com/ReyGenteng/galaxy/internal/store"
	"github.com/ReyGenteng/galaxy/pkg/atlanticclient"
	rmrabbit "github.com/ReyGenteng/galaxy/pkg/rabbitmq"
	"github.com/redis/go-redis/v9"
)

// newService wires the gateway service with the upstream client and publisher.
func newService(cfg config.Config, repo store.Repository, publisher rmrabbit.Publisher, logger *slog.Logger) *app.Service {
	client := atlanticclient.NewClient(cfg.AtlanticAPIBaseURL, cfg.AtlanticAPIKey, cfg.UpstreamTimeout())
	client.DepositType = cfg.AtlanticDepositType
	client.DepositMethod = cfg.AtlanticDepositMethod
	client.Logger = logger

	return app.NewService(repo, client, publisher, app.Options{
		Fees:                    app.NewFeeSchedule(cfg.DepositFeePercent, cfg.DepositFeeFlat),
		DepositExpiry:           cfg.DepositExpiry(),
		WithdrawWhatsAppPhone:   cfg.WithdrawWhatsAppPhone,
		WithdrawMessageTemplate: cfg.WithdrawMessageTemplate,
	}, logger)
}

func runServe(ctx context.Context, logger *slog.Logger) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	if cfg.AtlanticAPIKey == "" {
		logger.Warn("upstream api key not configured; deposit creation will fail", "component", "bootstrap", "env", "ATLANTIC_API_KEY")
	}

	logger.Info("starting rpay gateway", "component", "bootstrap", "port", cfg.ServerPort, "db_driver", cfg.DBDriver)

	repo, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	logger.Info("database ready", "component", "bootstrap", "driver", repo.Driver())

	// Events are optional; without a broker the fallback only logs.
	var publisher rmrabbit.Publisher = &rmrabbit.EventProducerFallback{Logger: logger}
	if cfg.RabbitMQURL != "" {
		producer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange, logger)
		if err != nil {
			logger.Warn("rabbitmq producer unavailable; using fallback", "component", "bootstrap", "err", err)
		} else {
			defer producer.Close()
			publisher = producer
			logger.Info("rabbitmq producer connected", "component", "bootstrap", "exchange", cfg.EventsExchange)
		}
	}

	var limiter app.RateLimiter
	if cfg.RedisURL == "" {
		logger.Info("redis url missing; h2h rate limiting disabled", "component", "bootstrap", "env", "REDIS_URL")
	} else if redisClient := connectRedis(ctx, cfg.RedisURL, logger); redisClient != nil {
		defer redisClient.Close()
		limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	service := newService(cfg, repo, publisher, logger)

	if cfg.AdminConfigured() {
		if _, err := service.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("admin seeding failed", "component", "bootstrap", "err", err)
		}
	} else {
		logger.Warn("admin credentials not configured; no admin account seeded", "component", "bootstrap")
	}

	scheduler := app.NewScheduler(app.NewJobs(service, logger, cfg), logger, cfg)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	sessions := api.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL(), cfg.CookieSecure)
	handlers, err := api.NewHandlers(service, sessions, logger)
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	router := api.GatewayRoutes(handlers, api.RouterOptions{
		AllowedOrigins:        cfg.AllowedOrigins(),
		Limiter:               limiter,
		H2HRateLimitPerMinute: cfg.H2HRateLimitPerMinute,
		Logger:                logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "component", "http", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
	case err := <-serverErr:
		if err != nil {
			<-scheduler.Stop().Done()
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	}
	logger.Info("shutdown started", "component", "http")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "component", "http", "err", err)
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop in time", "component", "scheduler")
	}

	logger.Info("shutdown complete", "component", "http")
	return nil
}

func connectRedis(ctx context.Context, redisURL string, logger *slog.Logger) *redis.Client {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("redis url parse failed; h2h rate limiting disabled", "component", "bootstrap", "err", err)
		return nil
	}

	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed; h2h rate limiting disabled", "component", "bootstrap", "err", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected", "component", "bootstrap")
	return client
}
