package config

import (
	"context"
	"fmt"

	"github.com/bellapacxx/guba-backend/cache"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/bellapacxx/guba-backend/store/memory"
	"github.com/bellapacxx/guba-backend/store/mongo"
	"github.com/bellapacxx/guba-backend/store/postgres"
	"github.com/bellapacxx/guba-backend/utils/logger"
)

// SetupDatabase connects to the configured store and prepares its schema.
func SetupDatabase(ctx context.Context, cfg *Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case DriverMongo:
		s, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		logger.Info("✅ MongoDB indexes ensured")
		return s, nil

	case DriverPostgres:
		s, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("✅ Database migration completed")
		return s, nil

	case DriverMemory:
		logger.Warnf("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// SetupCache connects to Redis when REDIS_ADDR is set and falls back to an
// in-process cache otherwise.
func SetupCache(ctx context.Context, cfg *Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-memory cache")
		return cache.NewMemory(), nil
	}
	c, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	logger.Infof("Redis connection opened at %s", cfg.RedisAddr)
	return c, nil
}
