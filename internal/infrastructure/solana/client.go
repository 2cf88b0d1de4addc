package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/config"
)

// ErrAccountNotFound is returned when an account does not exist on chain
var ErrAccountNotFound = errors.New("account not found")

// RawTokenAccount is an SPL token account as returned by the node, still encoded
type RawTokenAccount struct {
	Pubkey solana.PublicKey
	Data   []byte
}

// SignatureInfo is one confirmed signature of an address
type SignatureInfo struct {
	Signature string
	BlockTime *time.Time
	Failed    bool
}

// RPC is the subset of node calls the backend depends on
type RPC interface {
	GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	GetTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]RawTokenAccount, error)
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
	GetSignatures(ctx context.Context, owner solana.PublicKey, limit int) ([]SignatureInfo, error)
}

// Ensure Client implements RPC
var _ RPC = (*Client)(nil)

// Client wraps the Solana JSON-RPC client with per-request timeouts
type Client struct {
	rpc        *rpc.Client
	config     config.SolanaConfig
	commitment rpc.CommitmentType
	logger     *zap.Logger
}

// NewClient creates a new Solana RPC client
func NewClient(cfg config.SolanaConfig, logger *zap.Logger) *Client {
	logger.Info("Using Solana RPC endpoint",
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("commitment", cfg.Commitment),
	)

	return &Client{
		rpc:        rpc.New(cfg.RPCURL),
		config:     cfg,
		commitment: rpc.CommitmentType(cfg.Commitment),
		logger:     logger.Named("solana_rpc"),
	}
}

// Close closes the underlying HTTP transport
func (c *Client) Close() error {
	return c.rpc.Close()
}

// HealthCheck reports whether the node considers itself healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	status, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("solana node unreachable: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("solana node reports %q", status)
	}
	return nil
}

// GetBalance returns the lamport balance of owner
func (c *Client) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	result, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return result.Value, nil
}

// GetTokenAccounts lists every SPL Token program account owned by owner
func (c *Client) GetTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]RawTokenAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	programID := solana.TokenProgramID
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts by owner: %w", err)
	}

	accounts := make([]RawTokenAccount, 0, len(result.Value))
	for _, acct := range result.Value {
		if acct == nil || acct.Account.Data == nil {
			continue
		}
		accounts = append(accounts, RawTokenAccount{
			Pubkey: acct.Pubkey,
			Data:   acct.Account.Data.GetBinary(),
		})
	}

	return accounts, nil
}

// GetAccountData returns the raw data of an account
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	result, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account %s: %w", account, err)
	}
	if result == nil || result.Value == nil || result.Value.Data == nil {
		return nil, ErrAccountNotFound
	}

	return result.Value.Data.GetBinary(), nil
}

// GetSignatures returns up to limit signatures involving owner, newest first
func (c *Client) GetSignatures(ctx context.Context, owner solana.PublicKey, limit int) ([]SignatureInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	result, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, owner, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures: %w", err)
	}

	signatures := make([]SignatureInfo, 0, len(result))
	for _, sig := range result {
		if sig == nil {
			continue
		}
		info := SignatureInfo{
			Signature: sig.Signature.String(),
			Failed:    sig.Err != nil,
		}
		if sig.BlockTime != nil {
			t := sig.BlockTime.Time().UTC()
			info.BlockTime = &t
		}
		signatures = append(signatures, info)
	}

	return signatures, nil
}
