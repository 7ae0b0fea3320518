package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"linepay-be/internal/config"
	"linepay-be/internal/db"
	"linepay-be/internal/graph"
	"linepay-be/internal/linepay"
	"linepay-be/internal/logger"
	"linepay-be/internal/metrics"
	"linepay-be/internal/middleware"
	"linepay-be/internal/order"
	"linepay-be/internal/payment"
	"linepay-be/internal/payment/callback"
	"linepay-be/internal/settings"
	"linepay-be/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	settingsCacheTTL = 10 * time.Minute
	shutdownTimeout  = 30 * time.Second
)

func main() {
	cfg := config.MustLoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database := db.InitDB(cfg)
	defer database.Close()

	rdb, err := db.NewRedis(ctx, cfg)
	if err != nil {
		// the settings cache is optional; settings are read from postgres
		logger.L().Warn("redis unavailable, settings cache disabled", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	limiter := middleware.NewRateLimiter()
	go limiter.Run(ctx)

	stats := metrics.NewGatewayStats()
	orders := order.NewRepository(database)
	processor := newProcessor(cfg, database, orders, rdb, stats)
	handler := callback.NewHandler(processor, cfg.LinePay.CompletedURL)
	gql := graph.NewHandler(&graph.Resolver{Orders: orders, Payments: processor, Stats: stats})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           setupRouter(handler, gql, limiter, stats, []byte(cfg.SecretKey)),
		ReadHeaderTimeout: 10 * time.Second,
		// leaves room for the 25s gateway timeout
		WriteTimeout: 40 * time.Second,
	}

	go func() {
		logger.L().Info("LINE Pay server running", zap.String("addr", srv.Addr), zap.String("gateway", cfg.LinePay.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}

func newProcessor(cfg *config.Config, database *sql.DB, orders order.Repository, rdb *redis.Client, stats *metrics.GatewayStats) *payment.Processor {
	opts := []settings.ProviderOption{settings.WithRepository(settings.NewRepository(database))}
	if rdb != nil {
		opts = append(opts, settings.WithSnapshotCache(settings.NewRedisSnapshotCache(rdb, settingsCacheTTL)))
	}

	provider := settings.NewProvider(settings.Settings{
		ChannelID:     cfg.LinePay.ChannelID,
		ChannelSecret: cfg.LinePay.ChannelSecret,
		PictureURL:    cfg.LinePay.PictureURL,
		Locale:        cfg.LinePay.Locale,
	}, opts...)

	client := linepay.NewClient(cfg.LinePay.BaseURL)

	return payment.NewProcessor(orders, provider, client, payment.Config{
		Currency:               cfg.LinePay.Currency,
		ConfirmURL:             cfg.LinePay.ConfirmURL,
		CancelURL:              cfg.LinePay.CancelURL,
		AllowInsecureLocalhost: cfg.AppEnv != "production",
	}, payment.WithStats(stats))
}

func setupRouter(handler *callback.Handler, gql http.Handler, limiter *middleware.RateLimiter, stats *metrics.GatewayStats, secret []byte) http.Handler {
	mux := http.NewServeMux()
	admin := middleware.RequireAdmin(secret)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /admin/metrics", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, stats.Snapshot())
	})))

	// the schema's @auth directive reads the claims AuthMiddleware sets
	mux.Handle("POST /query", gql)

	handler.Register(mux, admin)

	var h http.Handler = mux
	h = limiter.Middleware(h)
	h = middleware.AuthMiddleware(secret)(h)
	h = logger.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	return h
}
