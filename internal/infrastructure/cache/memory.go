package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// Ensure MemoryCache implements CacheRepository
var _ repositories.CacheRepository = (*MemoryCache)(nil)

// MemoryCache implements CacheRepository in process memory.
// An entry written at t with ttl is served for reads strictly before t+ttl.
// Contents do not survive a restart, so it is meant for development and tests.
type MemoryCache struct {
	store *gocache.Cache
	now   func() time.Time
}

const memoryCleanupInterval = time.Minute

// memoryEntry is what the store holds. go-cache evicts an item only after
// its expiration, so freshness is decided on expiresAt instead.
type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, memoryCleanupInterval),
		now:   time.Now,
	}
}

// WithClock replaces the clock used to stamp and check expiry
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

// GetBalance retrieves a cached snapshot
func (c *MemoryCache) GetBalance(_ context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error) {
	var snapshot entities.PortfolioSnapshot
	found, err := c.get(Key(NamespaceBalance, chain, address), &snapshot)
	if err != nil || !found {
		return nil, false, err
	}
	return &snapshot, true, nil
}

// PutBalance stores a snapshot with the given TTL
func (c *MemoryCache) PutBalance(_ context.Context, address string, chain entities.Chain, snapshot *entities.PortfolioSnapshot, ttl time.Duration) error {
	return c.set(Key(NamespaceBalance, chain, address), snapshot, ttl)
}

// GetPrice retrieves a cached price quote
func (c *MemoryCache) GetPrice(_ context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, bool, error) {
	var quote entities.PriceQuote
	found, err := c.get(Key(NamespacePrice, chain, tokenID), &quote)
	if err != nil || !found {
		return nil, false, err
	}
	return &quote, true, nil
}

// PutPrice stores a price quote with the given TTL
func (c *MemoryCache) PutPrice(_ context.Context, tokenID string, chain entities.Chain, quote *entities.PriceQuote, ttl time.Duration) error {
	return c.set(Key(NamespacePrice, chain, tokenID), quote, ttl)
}

// GetMetadata retrieves cached token metadata
func (c *MemoryCache) GetMetadata(_ context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, bool, error) {
	var meta entities.TokenMetadata
	found, err := c.get(Key(NamespaceMetadata, chain, tokenID), &meta)
	if err != nil || !found {
		return nil, false, err
	}
	return &meta, true, nil
}

// PutMetadata stores token metadata with the given TTL
func (c *MemoryCache) PutMetadata(_ context.Context, tokenID string, chain entities.Chain, meta *entities.TokenMetadata, ttl time.Duration) error {
	return c.set(Key(NamespaceMetadata, chain, tokenID), meta, ttl)
}

// HealthCheck always succeeds
func (c *MemoryCache) HealthCheck(_ context.Context) error {
	return nil
}

// Values are stored encoded so callers never share mutable state with the cache
func (c *MemoryCache) get(key string, dest interface{}) (bool, error) {
	raw, found := c.store.Get(key)
	if !found {
		return false, nil
	}

	entry, ok := raw.(memoryEntry)
	if !ok {
		return false, fmt.Errorf("unexpected cached type %T for %s", raw, key)
	}
	if !entry.expiresAt.After(c.now()) {
		c.store.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for %s: %w", key, err)
	}
	return true, nil
}

func (c *MemoryCache) set(key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	// The janitor reclaims entries that are never read again
	c.store.Set(key, memoryEntry{data: data, expiresAt: c.now().Add(ttl)}, ttl)
	return nil
}
