package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/pkruk/stayimport/internal/api"
	"github.com/pkruk/stayimport/internal/config"
	"github.com/pkruk/stayimport/internal/database"
	"github.com/pkruk/stayimport/internal/filestore"
	"github.com/pkruk/stayimport/internal/queue"
	"github.com/pkruk/stayimport/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	tasks := repository.NewTaskRepository(pool)

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init file store: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()
	enqueuer := queue.NewClient(asynqClient, cfg.MaxJobRetries)

	server := api.New(cfg, tasks, files, enqueuer, log)
	if err := server.Run(ctx); err != nil {
		log.Errorf("api stopped: %v", err)
		os.Exit(1)
	}
}

func newFileStore(ctx context.Context, cfg *config.Config) (filestore.Store, error) {
	if cfg.StorageBackend == "s3" {
		store, err := filestore.NewS3Store(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBuckets(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return filestore.NewLocalStore(cfg.UploadsDir, cfg.ReportsDir)
}
