package testutil

import (
	"fmt"
	"time"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

// Common test addresses
const (
	EthAddress  = "0x1111111111111111111111111111111111111111"
	EthAddress2 = "0x2222222222222222222222222222222222222222"
	SolAddress  = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	USDCAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	USDTAddress = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	USDCSolMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	WrappedSOL  = "So11111111111111111111111111111111111111112"
)

// FixtureTime is the fetch time used by fixtures
var FixtureTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// CreateTestHolding creates a test holding with default values
func CreateTestHolding(opts ...HoldingOption) entities.TokenHolding {
	h := entities.NewTokenHolding("USDC", USDCAddress, 100, 6, 1.0)
	for _, opt := range opts {
		opt(&h)
	}
	h.ValueUSD = h.Amount * h.PriceUSD
	return h
}

type HoldingOption func(*entities.TokenHolding)

func HoldingWithSymbol(symbol string) HoldingOption {
	return func(h *entities.TokenHolding) {
		h.Symbol = symbol
	}
}

func HoldingWithToken(id string) HoldingOption {
	return func(h *entities.TokenHolding) {
		h.MintOrAddress = id
	}
}

func HoldingWithAmount(amount float64) HoldingOption {
	return func(h *entities.TokenHolding) {
		h.Amount = amount
	}
}

func HoldingWithPrice(price float64) HoldingOption {
	return func(h *entities.TokenHolding) {
		h.PriceUSD = price
	}
}

func HoldingWithName(name string) HoldingOption {
	return func(h *entities.TokenHolding) {
		h.Name = &name
	}
}

// CreateTestSnapshot creates a test snapshot with default values
func CreateTestSnapshot(opts ...SnapshotOption) *entities.PortfolioSnapshot {
	cfg := &snapshotConfig{
		chain:       entities.ChainEthereum,
		address:     EthAddress,
		native:      1.5,
		nativePrice: 2000,
		holdings:    []entities.TokenHolding{CreateTestHolding()},
		fetchedAt:   FixtureTime,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return entities.NewPortfolioSnapshot(cfg.chain, cfg.address, cfg.native, cfg.nativePrice, cfg.holdings, cfg.fetchedAt)
}

type snapshotConfig struct {
	chain       entities.Chain
	address     string
	native      float64
	nativePrice float64
	holdings    []entities.TokenHolding
	fetchedAt   time.Time
}

type SnapshotOption func(*snapshotConfig)

func SnapshotWithChain(chain entities.Chain, address string) SnapshotOption {
	return func(c *snapshotConfig) {
		c.chain = chain
		c.address = address
	}
}

func SnapshotWithNative(balance, price float64) SnapshotOption {
	return func(c *snapshotConfig) {
		c.native = balance
		c.nativePrice = price
	}
}

func SnapshotWithHoldings(holdings ...entities.TokenHolding) SnapshotOption {
	return func(c *snapshotConfig) {
		c.holdings = holdings
	}
}

func SnapshotFetchedAt(t time.Time) SnapshotOption {
	return func(c *snapshotConfig) {
		c.fetchedAt = t
	}
}

// CreateTestTransactions creates count records, newest first
func CreateTestTransactions(count int, chain entities.Chain) []entities.TransactionRecord {
	records := make([]entities.TransactionRecord, count)
	for i := 0; i < count; i++ {
		records[i] = entities.TransactionRecord{
			Hash:        generateTxHash(i),
			Timestamp:   FixtureTime.Add(-time.Duration(i) * time.Minute),
			Type:        entities.TxTypeTransfer,
			Amount:      float64(i + 1),
			TokenSymbol: chain.NativeSymbol(),
			Chain:       chain,
			Status:      entities.TxStatusSuccess,
		}
	}
	return records
}

func generateTxHash(index int) string {
	return fmt.Sprintf("0x%064x", index+1)
}

// PointerTo returns a pointer to the given value
func PointerTo[T any](v T) *T {
	return &v
}
