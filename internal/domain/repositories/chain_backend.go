package repositories

import (
	"context"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

// ChainBackend defines the interface every supported chain implements.
// Variants differ in how they discover candidate holdings but all produce
// the same snapshot shape.
type ChainBackend interface {
	// Chain returns the chain this backend serves
	Chain() entities.Chain

	// ValidateAddress reports whether address is well-formed for the chain
	ValidateAddress(address string) bool

	// FetchPortfolio resolves the native balance and token holdings of an address.
	// A failure resolving a single token omits that token instead of failing.
	FetchPortfolio(ctx context.Context, address string) (*entities.PortfolioSnapshot, error)

	// FetchTransactions returns at most limit recent transactions, newest first.
	// An empty result is valid when the chain cannot enumerate history.
	FetchTransactions(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error)
}
