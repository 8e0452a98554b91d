package cmd

import (
	"context"
	"fmt"
	"time"

	"segment-sync/core/batch"
	"segment-sync/core/config"
	"segment-sync/core/database"
	"segment-sync/core/index"
	"segment-sync/core/kvstore"
	"segment-sync/core/logger"
	"segment-sync/core/reconcile"
	"segment-sync/core/storage"
	"segment-sync/feature/snapshots"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds the shared dependencies every command builds the same way.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	kv     kvstore.Client
	store  *index.Store
	engine *reconcile.Engine
}

// setup loads configuration, builds the logger and connects to Redis.
func setup() (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	kv, err := kvstore.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.TimeoutSeconds)*time.Second)
	defer cancel()
	if err := kv.Ping(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	store := index.New(kv, index.Keys{Prefix: cfg.Redis.KeyPrefix}, l, cfg.Segments.ChangeTTL)
	engine := reconcile.NewEngine(kv, store, batch.New(kv, cfg.Segments.BatchSize), l, cfg.Segments.Options())

	return &runtime{
		cfg:    cfg,
		logger: l,
		kv:     kv,
		store:  store,
		engine: engine,
	}, nil
}

// openDB connects to the catalog database.
func (r *runtime) openDB() (*gorm.DB, error) {
	db, err := database.Connect(r.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// exporter connects to snapshot storage and makes sure the bucket exists.
// It returns storage.ErrDisabled when no endpoint is configured.
func (r *runtime) exporter(ctx context.Context) (*snapshots.Exporter, error) {
	client, err := storage.NewClient(r.cfg.Storage)
	if err != nil {
		return nil, err
	}

	exp := snapshots.NewExporter(r.store, client, r.cfg.Storage, r.logger)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Storage.TimeoutSeconds)*time.Second)
	defer cancel()
	if err := exp.EnsureBucket(ctx, r.cfg.Storage.Region); err != nil {
		return nil, fmt.Errorf("failed to prepare snapshot bucket: %w", err)
	}
	return exp, nil
}

func (r *runtime) close() {
	_ = r.kv.Close()
	_ = r.logger.Sync()
}
