package ethereum

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// ErrNoName is returned when a contract reports an empty name
var ErrNoName = errors.New("token has no on-chain name")

// Ensure MetadataReader implements MetadataProvider
var _ repositories.MetadataProvider = (*MetadataReader)(nil)

// MetadataReader serves token display names straight from the ERC-20 contract.
// It has no logo source and is meant as the last entry of a fallback chain.
type MetadataReader struct {
	erc20 *ERC20Reader
}

// NewMetadataReader creates a new on-chain metadata reader
func NewMetadataReader(rpc RPC) *MetadataReader {
	return &MetadataReader{erc20: NewERC20Reader(rpc)}
}

// MetadataOf reads name() from the token contract
func (r *MetadataReader) MetadataOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error) {
	if chain != entities.ChainEthereum {
		return nil, fmt.Errorf("unsupported chain %s", chain)
	}
	if !common.IsHexAddress(tokenID) {
		return nil, fmt.Errorf("invalid token address %q", tokenID)
	}

	name, err := r.erc20.Name(ctx, common.HexToAddress(tokenID))
	if err != nil {
		return nil, fmt.Errorf("failed to read token name: %w", err)
	}
	if name == "" {
		return nil, ErrNoName
	}

	return &entities.TokenMetadata{Name: &name}, nil
}
