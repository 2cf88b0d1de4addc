package market

import (
	"context"

	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// QuoteOrDefault returns the provider's quote, or a zero price with no change
// when the lookup fails. A missing price never blocks reporting a balance.
func QuoteOrDefault(ctx context.Context, provider repositories.PriceProvider, tokenID string, chain entities.Chain, logger *zap.Logger) *entities.PriceQuote {
	if provider == nil {
		return &entities.PriceQuote{}
	}

	quote, err := provider.PriceOf(ctx, tokenID, chain)
	if err != nil || quote == nil {
		logger.Debug("Price lookup failed, defaulting to zero",
			zap.String("token", tokenID),
			zap.String("chain", string(chain)),
			zap.Error(err),
		)
		return &entities.PriceQuote{}
	}

	return quote
}

// MetadataOrNil returns the provider's metadata, or nil when the lookup fails
func MetadataOrNil(ctx context.Context, provider repositories.MetadataProvider, tokenID string, chain entities.Chain, logger *zap.Logger) *entities.TokenMetadata {
	if provider == nil {
		return nil
	}

	meta, err := provider.MetadataOf(ctx, tokenID, chain)
	if err != nil {
		logger.Debug("Metadata lookup failed, omitting display fields",
			zap.String("token", tokenID),
			zap.String("chain", string(chain)),
			zap.Error(err),
		)
		return nil
	}

	return meta
}
