package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/config"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/database"
)

// NewStore returns the cache repository selected by CACHE_BACKEND along
// with a function releasing its resources. db is required for the postgres backend.
func NewStore(cfg *config.Config, db *database.PostgresDB, logger *zap.Logger) (repositories.CacheRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheBackendPostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("postgres cache backend requires a database connection")
		}
		return database.NewCacheRepo(db.DB()), noop, nil

	case config.CacheBackendRedis:
		redisCache, err := NewRedisCache(cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return redisCache, redisCache.Close, nil

	case config.CacheBackendMemory:
		logger.Warn("Using in-memory cache, entries will not survive a restart")
		return NewMemoryCache(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
