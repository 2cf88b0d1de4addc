package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// ErrNoMetadata is returned when no provider in a chain knows the token
var ErrNoMetadata = errors.New("no metadata for token")

// Ensure FallbackMetadataProvider implements MetadataProvider
var _ repositories.MetadataProvider = (*FallbackMetadataProvider)(nil)

// FallbackMetadataProvider asks providers in order and keeps the first named record
type FallbackMetadataProvider struct {
	providers []repositories.MetadataProvider
}

// NewFallbackMetadataProvider creates a provider chain, skipping nil entries
func NewFallbackMetadataProvider(providers ...repositories.MetadataProvider) *FallbackMetadataProvider {
	chain := make([]repositories.MetadataProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &FallbackMetadataProvider{providers: chain}
}

// MetadataOf returns the first record that carries a name. When none does,
// the first non-empty record is returned, else ErrNoMetadata joined with
// every provider error.
func (f *FallbackMetadataProvider) MetadataOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error) {
	var partial *entities.TokenMetadata
	var errs []error

	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta, err := p.MetadataOf(ctx, tokenID, chain)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if meta.HasName() {
			if meta.LogoURI == nil && partial != nil {
				meta.LogoURI = partial.LogoURI
			}
			return meta, nil
		}
		if partial == nil && meta != nil && meta.LogoURI != nil {
			partial = meta
		}
	}

	if partial != nil {
		return partial, nil
	}

	err := fmt.Errorf("%w: %s on %s", ErrNoMetadata, tokenID, chain)
	if len(errs) > 0 {
		err = errors.Join(append([]error{err}, errs...)...)
	}
	return nil, err
}
