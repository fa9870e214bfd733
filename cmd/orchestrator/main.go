package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/reelworks/chunkstream/internal/config"
	"github.com/reelworks/chunkstream/internal/domain/repository"
	"github.com/reelworks/chunkstream/internal/infrastructure/postgres"
	"github.com/reelworks/chunkstream/internal/infrastructure/queue"
	"github.com/reelworks/chunkstream/internal/infrastructure/storage"
	"github.com/reelworks/chunkstream/internal/infrastructure/tracker"
	"github.com/reelworks/chunkstream/internal/media"
	"github.com/reelworks/chunkstream/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
		CDNHost:   cfg.MinIO.CDNHost,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.MaxAttempts = cfg.Worker.MaxRetries
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	engine := media.NewFFmpegEngine(media.FFmpegConfig{
		FFmpegPath:  cfg.FFmpeg.FFmpegPath,
		FFprobePath: cfg.FFmpeg.FFprobePath,
	})

	videoRepo := postgres.NewVideoRepository(pgClient.Pool())
	completionTracker := tracker.NewRedisTracker(redisClient, cfg.Pipeline.TrackerTTL)

	orchestrateSvc := usecase.NewOrchestrateService(
		videoRepo,
		storageClient,
		queueClient,
		completionTracker,
		engine,
		usecase.OrchestrateServiceConfig{
			TempDir:            cfg.Worker.TempDir,
			SegmentSeconds:     cfg.Pipeline.SegmentSeconds,
			MaxHeight:          cfg.Pipeline.MaxHeight,
			ThumbnailAtSeconds: cfg.Pipeline.ThumbnailAtSeconds,
		},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track the in-flight job through shutdown
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting orchestrator, consuming jobs")
		err := queueClient.ConsumeOrchestrateJobs(ctx, func(job repository.OrchestrateJob, final bool) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing orchestrate job",
				slog.String("video_id", job.VideoID.String()),
				slog.Int("retry_count", job.RetryCount),
			)

			if err := orchestrateSvc.ProcessJob(ctx, job, final); err != nil {
				logger.Error("orchestrate job failed",
					slog.String("video_id", job.VideoID.String()),
					slog.Int("retry_count", job.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down orchestrator", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("in-flight job completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, job may not have completed")
	}

	logger.Info("orchestrator stopped")
	return nil
}
