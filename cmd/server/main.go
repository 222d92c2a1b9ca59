package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/common/otel"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/http/middleware"
	httprouter "basegraph.app/chat/internal/http/router"
	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/store"
	"basegraph.app/chat/internal/upstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "chat relay starting",
		"env", cfg.Env,
		"upstream", cfg.Upstream.BaseURL,
		"app_name", cfg.AppName,
		"api_key_configured", cfg.Upstream.APIKey != "",
	)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var sessions store.SessionStore
	if cfg.WorkOS.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "key_prefix", cfg.Redis.KeyPrefix)

		sessions = store.NewRedisSessionStore(redisClient, cfg.Redis.KeyPrefix)
	} else {
		slog.WarnContext(ctx, "WorkOS not configured, chat routes are unauthenticated")
	}

	services := service.NewServices(service.ServicesConfig{
		Sessions: sessions,
		WorkOS:   cfg.WorkOS,
		Auth:     cfg.Auth,
	})

	upstreamClient := upstream.NewClient(cfg.Upstream, nil)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, upstreamClient)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Chat submissions stream for as long as the upstream takes, so
		// there is no read or write timeout; the upstream client bounds them.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, client upstream.Client) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, client, httprouter.RouterConfig{
		DashboardURL:   cfg.DashboardURL,
		IsProduction:   cfg.IsProduction(),
		SessionTTL:     cfg.Auth.SessionTTL,
		MaxUploadBytes: cfg.Upstream.MaxUploadBytes,
	})

	return router
}

const banner = `
  ___ _  _   _ _____   ___ ___ _      ___   __
 / __| || | /_\_   _| | _ \ __| |    /_\ \ / /
| (__| __ |/ _ \| |   |   / _|| |__ / _ \ V /
 \___|_||_/_/ \_\_|   |_|_\___|____/_/ \_\_|
`
