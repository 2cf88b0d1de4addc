package repositories

import (
	"context"
	"time"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

// CacheRepository defines the interface for TTL-bound cache storage.
// It holds three independent namespaces keyed by (subject, chain):
// balance snapshots, token prices and token metadata.
//
// A Get reports found only when the entry exists and its expiry is strictly
// after the current time. A missing or expired entry is (nil, false, nil).
// Storage failures are returned as errors and are never reported as a miss.
type CacheRepository interface {
	// GetBalance retrieves a cached portfolio snapshot for an address
	GetBalance(ctx context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error)

	// PutBalance upserts a snapshot, expiring ttl from now
	PutBalance(ctx context.Context, address string, chain entities.Chain, snapshot *entities.PortfolioSnapshot, ttl time.Duration) error

	// GetPrice retrieves a cached price quote for a token
	GetPrice(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, bool, error)

	// PutPrice upserts a price quote, expiring ttl from now
	PutPrice(ctx context.Context, tokenID string, chain entities.Chain, quote *entities.PriceQuote, ttl time.Duration) error

	// GetMetadata retrieves cached token metadata
	GetMetadata(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, bool, error)

	// PutMetadata upserts token metadata, expiring ttl from now
	PutMetadata(ctx context.Context, tokenID string, chain entities.Chain, meta *entities.TokenMetadata, ttl time.Duration) error

	// HealthCheck reports whether the underlying storage is reachable
	HealthCheck(ctx context.Context) error
}
