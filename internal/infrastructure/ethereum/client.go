package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/config"
)

// RPC is the subset of node calls the backend depends on
type RPC interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Ensure Client implements RPC
var _ RPC = (*Client)(nil)

// JSON-RPC error codes for requests the node rejected outright
const (
	rpcCodeExecutionError = 3
	rpcCodeMethodNotFound = -32601
	rpcCodeInvalidParams  = -32602
)

// Client wraps the Ethereum client with retry logic and utilities
type Client struct {
	client *ethclient.Client
	config config.EthereumConfig
	logger *zap.Logger
}

// NewClient creates a new Ethereum client and verifies the chain ID
func NewClient(cfg config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if chainID.Int64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", cfg.ChainID, chainID.Int64())
	}

	logger.Info("Connected to Ethereum node",
		zap.String("rpc_url", cfg.RPCURL),
		zap.Int64("chain_id", chainID.Int64()),
	)

	return &Client{
		client: client,
		config: cfg,
		logger: logger.Named("ethereum_rpc"),
	}, nil
}

// Close closes the Ethereum client connection
func (c *Client) Close() {
	c.client.Close()
}

// BalanceAt returns the latest wei balance of an account
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return withRetry(ctx, c, "get balance", func(ctx context.Context) (*big.Int, error) {
		return c.client.BalanceAt(ctx, account, nil)
	})
}

// CallContract executes a read-only eth_call against the latest block
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}
	return withRetry(ctx, c, "call contract", func(ctx context.Context) ([]byte, error) {
		return c.client.CallContract(ctx, msg, nil)
	})
}

// FilterLogs retrieves logs matching the filter query
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return withRetry(ctx, c, "get logs", func(ctx context.Context) ([]types.Log, error) {
		return c.client.FilterLogs(ctx, query)
	})
}

// LatestBlockNumber returns the latest block number
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return withRetry(ctx, c, "get latest block number", func(ctx context.Context) (uint64, error) {
		return c.client.BlockNumber(ctx)
	})
}

// BlockTimestamp returns the timestamp of a block from its header
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := withRetry(ctx, c, "get block header", func(ctx context.Context) (*types.Header, error) {
		return c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	})
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// HealthCheck asks the node for its head block once, without retries
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	if _, err := c.client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("ethereum node unreachable: %w", err)
	}
	return nil
}

// withRetry runs fn up to MaxRetries+1 times, each attempt bounded by the
// request timeout. Waiting between attempts stops early when ctx is done.
// Errors the node answered with deterministically, such as a reverted
// eth_call, are returned after the first attempt.
func withRetry[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	var err error

	for i := 0; i <= c.config.MaxRetries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		result, err = fn(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if isPermanent(err) {
			c.logger.Debug("Node rejected "+op, zap.Error(err))
			return result, fmt.Errorf("failed to %s: %w", op, err)
		}

		c.logger.Warn("Failed to "+op+", retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.config.MaxRetries {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	return result, fmt.Errorf("failed to %s after %d retries: %w", op, c.config.MaxRetries, err)
}

// isPermanent reports whether the node rejected the request itself rather
// than failing to answer it
func isPermanent(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case rpcCodeExecutionError, rpcCodeMethodNotFound, rpcCodeInvalidParams:
			return true
		}
	}
	// Some nodes report reverts as a generic -32000 server error
	return strings.Contains(err.Error(), "execution reverted")
}
