package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/server"
	"github.com/gravadigital/community-portal/internal/services"
	"github.com/gravadigital/community-portal/internal/storage"
	"github.com/gravadigital/community-portal/internal/storage/objects"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.App.LogLevel)
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer)
	defer hub.Close()

	storageType, err := storage.ValidateStorageType(cfg.Storage.Type)
	if err != nil {
		log.Fatal("Invalid storage type", "error", err)
	}
	container, err := storage.NewFactory(storageType).CreateContainer(ctx, cfg, hub)
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	if storageType == storage.StorageTypePostgres {
		listener := realtime.NewListener(cfg.GetDatabaseURL(),
			cfg.Realtime.MinReconnectInterval, cfg.Realtime.MaxReconnectInterval, hub)
		go func() {
			if err := listener.Run(ctx); err != nil {
				log.Error("Row change listener failed", "error", err)
			}
		}()
	}

	blobs, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize attachment storage", "error", err)
	}

	svc := services.New(cfg, container, hub, blobs)
	svc.Auth.InvalidateOnChange(ctx, hub)

	srv := server.New(cfg, svc, container)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Server stopped", "error", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	// closing the hub ends open event streams so Shutdown does not wait on them
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Graceful shutdown failed", "error", err)
	}

	// stops the row change listener before storage is closed
	stop()
	log.Info("Server exited")
}

// newObjectStore uses MinIO when an endpoint is configured and process memory otherwise
func newObjectStore(ctx context.Context, cfg *config.Config) (objects.Store, error) {
	if cfg.Objects.Endpoint == "" {
		logger.Objects().Warn("MINIO_ENDPOINT is not set, attachments are kept in memory")
		return objects.NewMemoryStore(), nil
	}
	return objects.NewMinioStore(ctx, cfg)
}
