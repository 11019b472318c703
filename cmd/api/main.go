package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeMatcher/internal/aiclient"
	"resumeMatcher/internal/api"
	"resumeMatcher/internal/auth"
	"resumeMatcher/internal/config"
	"resumeMatcher/internal/database"
	"resumeMatcher/internal/job"
	"resumeMatcher/internal/resume"
	"resumeMatcher/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database migrated")

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read jwt private key: %v", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read jwt public key: %v", err)
	}
	tokens, err := auth.NewAuthService(privateKey, publicKey, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	aiClient, err := aiclient.New(cfg.AI.BaseURL, cfg.AI.Timeout)
	if err != nil {
		log.Fatalf("init ai client: %v", err)
	}

	users := database.NewUserStore(db)
	jobs := database.NewJobStore(db)

	deps := resume.Dependencies{
		Resumes:    database.NewResumeStore(db),
		Jobs:       jobs,
		AI:         aiClient,
		Storage:    storageClient,
		Queue:      resume.NewAsynqEnqueuer(asynqClient),
		Logger:     logger,
		MaxMatches: cfg.AI.MaxMatches,
	}
	if cfg.Upload.ClamdAddr != "" {
		deps.Scanner = storage.NewClamdScanner(cfg.Upload.ClamdAddr)
		logger.Info("upload scanning enabled", slog.String("clamd_addr", cfg.Upload.ClamdAddr))
	}

	router := api.NewRouter(logger, cfg.API.InternalSecret)
	api.RegisterRoutes(router, api.Services{
		Tokens:   tokens,
		Sessions: auth.NewSessionService(users, tokens, logger),
		Jobs:     job.NewService(jobs, users, logger),
		Resumes:  resume.NewService(deps),
		Redis:    redisClient,
		Guard: api.NewLoginGuard(redisClient,
			cfg.Auth.LoginRateLimitPerHour,
			cfg.Auth.LoginLockThreshold,
			cfg.Auth.LoginLockTTL,
		),
		Logger:         logger,
		AllowedOrigins: cfg.API.AllowedOrigins,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", slog.Any("error", err))
	}
	logger.Info("api stopped")
}
