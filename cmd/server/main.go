package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	ginapi "github.com/decagraff/twitch-developer-hub/api/gin"
	"github.com/decagraff/twitch-developer-hub/cache"
	cacheredis "github.com/decagraff/twitch-developer-hub/cache/redis"
	"github.com/decagraff/twitch-developer-hub/config"
	"github.com/decagraff/twitch-developer-hub/internal/crypto"
	"github.com/decagraff/twitch-developer-hub/internal/server"
	"github.com/decagraff/twitch-developer-hub/log"
	"github.com/decagraff/twitch-developer-hub/mongodb"
	"github.com/decagraff/twitch-developer-hub/services"
	"github.com/decagraff/twitch-developer-hub/tracing"
	"github.com/decagraff/twitch-developer-hub/twitch"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting twitch-developer-hub server...", map[string]any{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"log_level":     cfg.LogLevel,
	})

	// Refuse to run without key material rather than failing on the first
	// encrypt call.
	if cfg.TokenMasterSecret == "" {
		appLogger.Fatal(ctx, "TOKEN_MASTER_SECRET is not configured", nil)
	}

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr)
	}
	db := mongodb.GetDB()

	// Repositories
	credentialRepo, err := mongodb.NewCredentialRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize CredentialRepository", err)
	}
	tokenRepo, err := mongodb.NewTokenRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TokenRepository", err)
	}
	webhookRepo, err := mongodb.NewWebhookRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize WebhookRepository", err)
	}

	// OAuth state store: redis when configured so callbacks can land on
	// any instance, in-memory otherwise.
	stateTTL := time.Duration(cfg.StateTTLMin) * time.Minute
	var stateStore cache.StateStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		stateStore = cacheredis.NewStateStore(redisClient, cfg.OtelServiceName, stateTTL)
		appLogger.Info(ctx, "Using redis-backed OAuth state store", map[string]any{"redis_addr": cfg.RedisAddr})
	} else {
		stateStore = cache.NewMemoryStateStore(stateTTL)
	}
	defer stateStore.Close()

	// Services
	codec := crypto.NewCodec(cfg.TokenMasterSecret)
	twitchClient := twitch.NewClient(cfg.TwitchIDBaseURL, cfg.TwitchAPIBaseURL)

	credentialSvc := services.NewCredentialService(credentialRepo, tokenRepo, codec, appLogger, cfg.ExposePlaintextSecrets)
	tokenSvc := services.NewTokenService(credentialRepo, tokenRepo, twitchClient, codec, stateStore, appLogger)
	webhookSvc := services.NewWebhookService(credentialRepo, tokenRepo, webhookRepo, twitchClient, codec, appLogger)

	hubAPI := ginapi.NewHubAPI(credentialSvc, tokenSvc, webhookSvc)

	httpServer = server.NewHTTPServer(cfg, appLogger, hubAPI)
	go func() {
		appLogger.Info(context.Background(), fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(context.Background(), "Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
		}
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
		}
	}

	mongodb.CloseMongoDB(shutdownCtx)
	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}
