package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/apperrors"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// TransactionService provides recent transaction history. Results are not cached.
type TransactionService struct {
	backends map[entities.Chain]repositories.ChainBackend
	logger   *zap.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(backends []repositories.ChainBackend, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		backends: indexBackends(backends),
		logger:   logger.Named("transactions"),
	}
}

// GetTransactions returns up to limit recent transactions of address, newest first.
// limit is clamped to [1, MaxTransactionLimit] with a non-positive value meaning the default.
func (s *TransactionService) GetTransactions(ctx context.Context, chain entities.Chain, address string, limit int) ([]entities.TransactionRecord, error) {
	const op = "GetTransactions"

	backend, address, err := resolveBackend(s.backends, op, chain, address)
	if err != nil {
		return nil, err
	}

	limit = entities.ClampTransactionLimit(limit)

	txs, err := backend.FetchTransactions(ctx, address, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("Failed to fetch transactions",
			zap.String("chain", chain.String()),
			zap.String("address", address),
			zap.Error(err),
		)
		return nil, apperrors.NewBackendUnavailable(op, chain, address, err)
	}

	if txs == nil {
		txs = []entities.TransactionRecord{}
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}

	return txs, nil
}
