package solana

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/chain-portfolio/internal/config"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/market"
)

const (
	lamportDecimals = 9
	symbolMintChars = 8
)

// Ensure Backend implements ChainBackend
var _ repositories.ChainBackend = (*Backend)(nil)

// Backend resolves Solana portfolios from the owner's SPL token accounts
type Backend struct {
	rpc      RPC
	prices   repositories.PriceProvider
	metadata repositories.MetadataProvider
	config   config.SolanaConfig
	decimals *gocache.Cache
	logger   *zap.Logger
	now      func() time.Time
}

// NewBackend creates a new Solana backend
func NewBackend(
	rpc RPC,
	prices repositories.PriceProvider,
	metadata repositories.MetadataProvider,
	cfg config.SolanaConfig,
	logger *zap.Logger,
) *Backend {
	return &Backend{
		rpc:      rpc,
		prices:   prices,
		metadata: metadata,
		config:   cfg,
		decimals: gocache.New(gocache.NoExpiration, 0),
		logger:   logger.Named("solana_backend"),
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
	return entities.ChainSolana
}

// ValidateAddress checks for a base58 public key of 32 to 44 characters
func (b *Backend) ValidateAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// FetchPortfolio reads the SOL balance and every SPL token account of address
func (b *Backend) FetchPortfolio(ctx context.Context, address string) (*entities.PortfolioSnapshot, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid owner %q: %w", address, err)
	}

	lamports, err := b.rpc.GetBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	nativeBalance := entities.ScaleUint64(lamports, lamportDecimals)
	nativeQuote := market.QuoteOrDefault(ctx, b.prices, b.config.NativePriceID, entities.ChainSolana, b.logger)

	accounts, err := b.rpc.GetTokenAccounts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts: %w", err)
	}

	results := make([]*entities.TokenHolding, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.config.MaxConcurrency))

	for i, account := range accounts {
		g.Go(func() error {
			holding, err := b.resolveHolding(gctx, account)
			if err != nil {
				b.logger.Warn("Skipping token account",
					zap.String("account", account.Pubkey.String()),
					zap.String("owner", address),
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
		zap.Int("account_count", len(accounts)),
		zap.Int("holding_count", len(holdings)),
	)

	return entities.NewPortfolioSnapshot(
		entities.ChainSolana,
		address,
		nativeBalance,
		nativeQuote.PriceUSD,
		holdings,
		b.now(),
	), nil
}

// resolveHolding decodes one token account. A nil holding with a nil error means a zero balance.
func (b *Backend) resolveHolding(ctx context.Context, account RawTokenAccount) (*entities.TokenHolding, error) {
	decoded, err := DecodeTokenAccount(account.Data)
	if err != nil {
		return nil, err
	}
	if decoded.Amount == 0 {
		return nil, nil
	}

	mint := decoded.Mint.String()
	decimals := b.mintDecimals(ctx, decoded.Mint)

	quote := market.QuoteOrDefault(ctx, b.prices, mint, entities.ChainSolana, b.logger)
	meta := market.MetadataOrNil(ctx, b.metadata, mint, entities.ChainSolana, b.logger)

	holding := entities.NewTokenHolding(deriveSymbol(meta, mint), mint, entities.ScaleUint64(decoded.Amount, decimals), decimals, 0).
		WithQuote(quote).
		WithMetadata(meta)

	return &holding, nil
}

// mintDecimals returns the decimals of a mint, reading the mint account once per process
func (b *Backend) mintDecimals(ctx context.Context, mint solana.PublicKey) uint8 {
	if !b.config.ResolveMintDecimals {
		return b.config.FallbackDecimals
	}

	key := mint.String()
	if cached, ok := b.decimals.Get(key); ok {
		return cached.(uint8)
	}

	data, err := b.rpc.GetAccountData(ctx, mint)
	if err == nil {
		var decimals uint8
		decimals, err = DecodeMintDecimals(data)
		if err == nil {
			b.decimals.Set(key, decimals, gocache.NoExpiration)
			return decimals
		}
	}

	b.logger.Debug("Falling back to default decimals",
		zap.String("mint", key),
		zap.Uint8("decimals", b.config.FallbackDecimals),
		zap.Error(err),
	)
	return b.config.FallbackDecimals
}

// deriveSymbol takes the first word of the token name, or a mint prefix when unnamed
func deriveSymbol(meta *entities.TokenMetadata, mint string) string {
	if meta.HasName() {
		if fields := strings.Fields(*meta.Name); len(fields) > 0 {
			return fields[0]
		}
	}
	if len(mint) > symbolMintChars {
		return mint[:symbolMintChars]
	}
	return mint
}

// FetchTransactions lists the address's most recent signatures, newest first.
// Amounts and counterparties are not decoded from the transactions.
func (b *Backend) FetchTransactions(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error) {
	if limit <= 0 {
		return []entities.TransactionRecord{}, nil
	}

	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid owner %q: %w", address, err)
	}

	signatures, err := b.rpc.GetSignatures(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	if len(signatures) > limit {
		signatures = signatures[:limit]
	}

	return lo.Map(signatures, func(sig SignatureInfo, _ int) entities.TransactionRecord {
		status := entities.TxStatusSuccess
		if sig.Failed {
			status = entities.TxStatusFailed
		}

		timestamp := time.Unix(0, 0).UTC()
		if sig.BlockTime != nil {
			timestamp = *sig.BlockTime
		}

		return entities.TransactionRecord{
			Hash:        sig.Signature,
			Timestamp:   timestamp,
			Type:        entities.TxTypeTransfer,
			Amount:      0,
			TokenSymbol: entities.ChainSolana.NativeSymbol(),
			Chain:       entities.ChainSolana,
			Status:      status,
		}
	}), nil
}
