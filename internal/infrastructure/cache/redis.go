package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/config"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// Ensure RedisCache implements CacheRepository
var _ repositories.CacheRepository = (*RedisCache)(nil)

// RedisCache implements CacheRepository using Redis key expiry
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger.Named("redis_cache"),
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetBalance retrieves a cached snapshot
func (c *RedisCache) GetBalance(ctx context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error) {
	var snapshot entities.PortfolioSnapshot
	found, err := c.get(ctx, Key(NamespaceBalance, chain, address), &snapshot)
	if err != nil || !found {
		return nil, false, err
	}
	return &snapshot, true, nil
}

// PutBalance stores a snapshot with the given TTL
func (c *RedisCache) PutBalance(ctx context.Context, address string, chain entities.Chain, snapshot *entities.PortfolioSnapshot, ttl time.Duration) error {
	return c.set(ctx, Key(NamespaceBalance, chain, address), snapshot, ttl)
}

// GetPrice retrieves a cached price quote
func (c *RedisCache) GetPrice(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, bool, error) {
	var quote entities.PriceQuote
	found, err := c.get(ctx, Key(NamespacePrice, chain, tokenID), &quote)
	if err != nil || !found {
		return nil, false, err
	}
	return &quote, true, nil
}

// PutPrice stores a price quote with the given TTL
func (c *RedisCache) PutPrice(ctx context.Context, tokenID string, chain entities.Chain, quote *entities.PriceQuote, ttl time.Duration) error {
	return c.set(ctx, Key(NamespacePrice, chain, tokenID), quote, ttl)
}

// GetMetadata retrieves cached token metadata
func (c *RedisCache) GetMetadata(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, bool, error) {
	var meta entities.TokenMetadata
	found, err := c.get(ctx, Key(NamespaceMetadata, chain, tokenID), &meta)
	if err != nil || !found {
		return nil, false, err
	}
	return &meta, true, nil
}

// PutMetadata stores token metadata with the given TTL
func (c *RedisCache) PutMetadata(ctx context.Context, tokenID string, chain entities.Chain, meta *entities.TokenMetadata, ttl time.Duration) error {
	return c.set(ctx, Key(NamespaceMetadata, chain, tokenID), meta, ttl)
}

// HealthCheck checks if Redis is reachable
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// get reads and decodes a key; redis.Nil is a miss, anything else an error
func (c *RedisCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for %s: %w", key, err)
	}

	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	// A zero TTL would make the key persistent
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}

	c.logger.Debug("Cached value", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}
