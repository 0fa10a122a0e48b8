package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/pkruk/stayimport/internal/config"
	"github.com/pkruk/stayimport/internal/database"
	"github.com/pkruk/stayimport/internal/filestore"
	"github.com/pkruk/stayimport/internal/notify"
	"github.com/pkruk/stayimport/internal/repository"
	"github.com/pkruk/stayimport/internal/worker"
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
	reservations := repository.NewReservationRepository(pool)

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init file store: %v", err)
	}

	// Task-state changes are mirrored to websocket subscribers; the hub lives
	// in the worker process because that is where transitions happen.
	hub := notify.NewHub(log)
	notifyMux := http.NewServeMux()
	notifyMux.Handle("/ws", hub)
	notifyServer := &http.Server{Addr: cfg.NotifyAddress, Handler: notifyMux}
	go func() {
		log.WithField("address", cfg.NotifyAddress).Info("notify hub listening")
		if err := notifyServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("notify hub stopped: %v", err)
		}
	}()

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Concurrency,
	})
	processor := worker.NewProcessor(tasks, reservations, files, hub, log, cfg.ApplyBatchSize)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
		_ = notifyServer.Close()
	}()

	if err := server.Run(mux); err != nil {
		log.Errorf("worker stopped: %v", err)
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
