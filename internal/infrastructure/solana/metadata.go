package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	tokenmetadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// MetaplexTokenMetadataProgramID is the program owning token metadata accounts
const MetaplexTokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

var metaplexProgramID = solana.MustPublicKeyFromBase58(MetaplexTokenMetadataProgramID)

// ErrNoMetadata is returned when a mint has no usable Metaplex metadata
var ErrNoMetadata = errors.New("no token metadata")

// Ensure MetadataReader implements MetadataProvider
var _ repositories.MetadataProvider = (*MetadataReader)(nil)

// MetadataReader reads token names from the mint's Metaplex metadata account.
// Off-chain JSON behind the metadata URI is not fetched.
type MetadataReader struct {
	rpc RPC
}

// NewMetadataReader creates a new Metaplex metadata reader
func NewMetadataReader(rpc RPC) *MetadataReader {
	return &MetadataReader{rpc: rpc}
}

// MetadataPDA derives the metadata account address of a mint
func MetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			metaplexProgramID.Bytes(),
			mint.Bytes(),
		},
		metaplexProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find metadata PDA: %w", err)
	}
	return pda, nil
}

// MetadataOf reads and decodes the Metaplex metadata of a mint
func (r *MetadataReader) MetadataOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error) {
	if chain != entities.ChainSolana {
		return nil, fmt.Errorf("unsupported chain %s", chain)
	}

	mint, err := solana.PublicKeyFromBase58(tokenID)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", tokenID, err)
	}

	pda, err := MetadataPDA(mint)
	if err != nil {
		return nil, err
	}

	data, err := r.rpc.GetAccountData(ctx, pda)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrNoMetadata
		}
		return nil, err
	}

	return decodeMetaplexMetadata(data)
}

func decodeMetaplexMetadata(data []byte) (*entities.TokenMetadata, error) {
	var onChain tokenmetadata.Metadata
	if err := bin.NewBorshDecoder(data).Decode(&onChain); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	// Fixed-width fields are padded with NULs
	name := strings.TrimSpace(strings.TrimRight(onChain.Data.Name, "\x00"))
	if name == "" {
		return nil, ErrNoMetadata
	}

	return &entities.TokenMetadata{Name: &name}, nil
}
