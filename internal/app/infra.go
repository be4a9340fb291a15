package app

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/redis"
	"storefront/internal/storage"

	_ "github.com/lib/pq"
)

const sweepInterval = 10 * time.Minute

type Infra struct {
	KV    storage.KV
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	switch cfg.StorageBackend {
	case "redis":
		redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}

		logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})

		return &Infra{
			KV:    storage.NewRedisKV(redisClient.Client),
			Redis: redisClient,
		}, nil

	case "postgres":
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("app: DATABASE_DSN is required for the postgres storage backend")
		}

		database, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}

		if err := db.RunStorageMigration(ctx, database.DB); err != nil {
			_ = database.Close()
			return nil, err
		}

		logger.Info("database ready", nil)

		kv := storage.NewPostgresKV(database.DB)
		go sweep(ctx, kv)

		return &Infra{
			KV: kv,
			DB: database,
		}, nil

	case "memory":
		logger.Warn("using in-memory storage, sessions and carts are lost on restart", nil)
		return &Infra{KV: storage.NewMemoryKV()}, nil
	}

	return nil, fmt.Errorf("app: unknown storage backend %q", cfg.StorageBackend)
}

// sweep deletes expired postgres entries until ctx is done. Reads already
// ignore them; this only keeps the table small.
func sweep(ctx context.Context, kv *storage.PostgresKV) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := kv.Sweep(ctx)
			if err != nil {
				logger.Warn("storage sweep failed", map[string]any{
					"error": err.Error(),
				})
				continue
			}
			if n > 0 {
				logger.Info("expired storage entries removed", map[string]any{
					"count": n,
				})
			}
		}
	}
}

func (i *Infra) Close() error {
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			return err
		}
	}
	if i.DB != nil {
		return i.DB.Close()
	}
	return nil
}
