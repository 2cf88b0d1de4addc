package repositories

import (
	"context"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

// PriceProvider defines the interface for token price lookups
type PriceProvider interface {
	// PriceOf returns the USD price of a token, and its 24h change when known
	PriceOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, error)
}

// MetadataProvider defines the interface for token display metadata lookups
type MetadataProvider interface {
	// MetadataOf returns the display name and logo of a token
	MetadataOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error)
}
