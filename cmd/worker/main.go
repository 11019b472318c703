package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"resumeMatcher/internal/aiclient"
	"resumeMatcher/internal/config"
	"resumeMatcher/internal/database"
	"resumeMatcher/internal/metrics"
	"resumeMatcher/internal/resume"
	"resumeMatcher/internal/tasks"
	"resumeMatcher/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	aiClient, err := aiclient.New(cfg.AI.BaseURL, cfg.AI.Timeout)
	if err != nil {
		log.Fatalf("init ai client: %v", err)
	}

	resumes := resume.NewService(resume.Dependencies{
		Resumes:    database.NewResumeStore(db),
		Jobs:       database.NewJobStore(db),
		AI:         aiClient,
		Logger:     logger,
		MaxMatches: cfg.AI.MaxMatches,
	})

	if cfg.Worker.MetricsPort > 0 {
		metricsServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("worker metrics server stopped", slog.Any("error", err))
			}
		}()
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeResumeAnalyze, worker.NewResumeAnalyzeHandler(resumes, worker.NewRedisPublisher(redisClient), logger))

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
