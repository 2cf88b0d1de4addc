package ethereum

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/chain-portfolio/internal/config"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/market"
)

const (
	nativeDecimals = 18
	unknownSymbol  = "UNK"
)

// Ensure Backend implements ChainBackend
var _ repositories.ChainBackend = (*Backend)(nil)

// Backend resolves Ethereum portfolios by probing a fixed token allow-list
type Backend struct {
	rpc      RPC
	erc20    *ERC20Reader
	tokens   []AllowlistedToken
	prices   repositories.PriceProvider
	metadata repositories.MetadataProvider
	config   config.EthereumConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewBackend creates a new Ethereum backend
func NewBackend(
	rpc RPC,
	prices repositories.PriceProvider,
	metadata repositories.MetadataProvider,
	cfg config.EthereumConfig,
	logger *zap.Logger,
) *Backend {
	return &Backend{
		rpc:      rpc,
		erc20:    NewERC20Reader(rpc),
		tokens:   ResolveAllowlist(cfg.TokenAllowlist),
		prices:   prices,
		metadata: metadata,
		config:   cfg,
		logger:   logger.Named("ethereum_backend"),
		now:      time.Now,
	}
}

// WithClock replaces the clock used to stamp snapshots
func (b *Backend) WithClock(now func() time.Time) *Backend {
	b.now = now
	return b
}

// Chain returns the chain this backend serves
func (b *Backend) Chain() entities.Chain {
	return entities.ChainEthereum
}

// ValidateAddress checks for a 0x-prefixed 20-byte hex address
func (b *Backend) ValidateAddress(address string) bool {
	return len(address) == 42 &&
		strings.HasPrefix(address, "0x") &&
		common.IsHexAddress(address)
}

// FetchPortfolio reads the native balance and every allow-listed token balance
func (b *Backend) FetchPortfolio(ctx context.Context, address string) (*entities.PortfolioSnapshot, error) {
	owner := common.HexToAddress(address)

	wei, err := b.rpc.BalanceAt(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	nativeBalance := entities.ScaleAmount(wei, nativeDecimals)
	nativeQuote := market.QuoteOrDefault(ctx, b.prices, strings.ToLower(b.config.NativePriceID), entities.ChainEthereum, b.logger)

	// Indexed by allow-list position so the output order is stable
	results := make([]*entities.TokenHolding, len(b.tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(len(b.tokens), b.config.MaxConcurrency)))

	for i, token := range b.tokens {
		g.Go(func() error {
			holding, err := b.fetchHolding(gctx, owner, token)
			if err != nil {
				b.logger.Warn("Skipping token after failed lookup",
					zap.String("token", token.ID()),
					zap.String("address", address),
					zap.Error(err),
				)
				return nil
			}
			results[i] = holding
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	holdings := lo.FilterMap(results, func(h *entities.TokenHolding, _ int) (entities.TokenHolding, bool) {
		if h == nil {
			return entities.TokenHolding{}, false
		}
		return *h, true
	})

	b.logger.Debug("Fetched portfolio",
		zap.String("address", address),
		zap.Float64("native_balance", nativeBalance),
		zap.Int("holding_count", len(holdings)),
	)

	return entities.NewPortfolioSnapshot(
		entities.ChainEthereum,
		entities.ChainEthereum.NormalizeAddress(address),
		nativeBalance,
		nativeQuote.PriceUSD,
		holdings,
		b.now(),
	), nil
}

// fetchHolding resolves one token. A nil holding with a nil error means a zero balance.
func (b *Backend) fetchHolding(ctx context.Context, owner common.Address, token AllowlistedToken) (*entities.TokenHolding, error) {
	raw, err := b.erc20.BalanceOf(ctx, token.Address, owner)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	if raw.Sign() <= 0 {
		return nil, nil
	}

	decimals, err := b.erc20.Decimals(ctx, token.Address)
	if err != nil {
		return nil, fmt.Errorf("decimals: %w", err)
	}

	symbol, err := b.erc20.Symbol(ctx, token.Address)
	if err != nil || symbol == "" {
		symbol = token.Symbol
	}
	if symbol == "" {
		symbol = unknownSymbol
	}

	id := token.ID()
	quote := market.QuoteOrDefault(ctx, b.prices, id, entities.ChainEthereum, b.logger)
	meta := market.MetadataOrNil(ctx, b.metadata, id, entities.ChainEthereum, b.logger)

	holding := entities.NewTokenHolding(symbol, id, entities.ScaleAmount(raw, decimals), decimals, 0).
		WithQuote(quote).
		WithMetadata(meta)

	return &holding, nil
}
