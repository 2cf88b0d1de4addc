package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// Ensure the cached decorators implement their provider interfaces
var (
	_ repositories.PriceProvider    = (*CachedPriceProvider)(nil)
	_ repositories.MetadataProvider = (*CachedMetadataProvider)(nil)
)

// CachedPriceProvider serves quotes from the price namespace of the cache
// and falls through to the wrapped provider on a miss
type CachedPriceProvider struct {
	next   repositories.PriceProvider
	cache  repositories.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPriceProvider creates a new cached price provider
func NewCachedPriceProvider(next repositories.PriceProvider, cache repositories.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedPriceProvider {
	return &CachedPriceProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("price_cache"),
	}
}

// PriceOf returns the cached quote or fetches and stores a fresh one.
// Cache failures are returned, never treated as a miss.
func (p *CachedPriceProvider) PriceOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, error) {
	quote, found, err := p.cache.GetPrice(ctx, tokenID, chain)
	if err != nil {
		return nil, fmt.Errorf("failed to read price cache: %w", err)
	}
	if found {
		return quote, nil
	}

	quote, err = p.next.PriceOf(ctx, tokenID, chain)
	if err != nil {
		return nil, err
	}

	if err := p.cache.PutPrice(ctx, tokenID, chain, quote, p.ttl); err != nil {
		return nil, fmt.Errorf("failed to write price cache: %w", err)
	}

	p.logger.Debug("Cached price",
		zap.String("token", tokenID),
		zap.String("chain", chain.String()),
		zap.Float64("price_usd", quote.PriceUSD),
	)

	return quote, nil
}

// CachedMetadataProvider serves display metadata from the metadata namespace
// of the cache and falls through to the wrapped provider on a miss
type CachedMetadataProvider struct {
	next   repositories.MetadataProvider
	cache  repositories.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedMetadataProvider creates a new cached metadata provider
func NewCachedMetadataProvider(next repositories.MetadataProvider, cache repositories.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedMetadataProvider {
	return &CachedMetadataProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("metadata_cache"),
	}
}

// MetadataOf returns the cached record or fetches and stores a fresh one
func (p *CachedMetadataProvider) MetadataOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error) {
	meta, found, err := p.cache.GetMetadata(ctx, tokenID, chain)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata cache: %w", err)
	}
	if found {
		return meta, nil
	}

	meta, err = p.next.MetadataOf(ctx, tokenID, chain)
	if err != nil {
		return nil, err
	}

	if err := p.cache.PutMetadata(ctx, tokenID, chain, meta, p.ttl); err != nil {
		return nil, fmt.Errorf("failed to write metadata cache: %w", err)
	}

	return meta, nil
}
