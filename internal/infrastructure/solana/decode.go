package solana

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go/programs/token"
)

// On-chain sizes of SPL Token program accounts
const (
	TokenAccountSize = 165
	MintAccountSize  = 82
)

// ErrShortAccount is returned when account data is smaller than its layout
var ErrShortAccount = errors.New("account data too short")

// DecodeTokenAccount decodes the fixed SPL token account layout
func DecodeTokenAccount(data []byte) (*token.Account, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("%w: token account has %d bytes, need %d", ErrShortAccount, len(data), TokenAccountSize)
	}

	var account token.Account
	if err := bin.NewBinDecoder(data).Decode(&account); err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}

	return &account, nil
}

// DecodeMintDecimals reads the decimals of an SPL mint account
func DecodeMintDecimals(data []byte) (uint8, error) {
	if len(data) < MintAccountSize {
		return 0, fmt.Errorf("%w: mint has %d bytes, need %d", ErrShortAccount, len(data), MintAccountSize)
	}

	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return 0, fmt.Errorf("failed to decode mint: %w", err)
	}

	return mint.Decimals, nil
}
