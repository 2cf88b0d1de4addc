package services

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/apperrors"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

// PortfolioService serves wallet portfolios from the balance cache,
// fetching from the chain backend on a miss
type PortfolioService struct {
	backends map[entities.Chain]repositories.ChainBackend
	cache    repositories.CacheRepository
	ttl      time.Duration
	metrics  *PortfolioMetrics
	now      func() time.Time
	logger   *zap.Logger
}

// NewPortfolioService creates a new portfolio service.
// ttl is the expiry applied to every snapshot written by GetPortfolio.
func NewPortfolioService(
	backends []repositories.ChainBackend,
	cache repositories.CacheRepository,
	ttl time.Duration,
	metrics *PortfolioMetrics,
	logger *zap.Logger,
) *PortfolioService {
	return &PortfolioService{
		backends: indexBackends(backends),
		cache:    cache,
		ttl:      ttl,
		metrics:  metrics,
		now:      time.Now,
		logger:   logger.Named("portfolio"),
	}
}

// WithClock replaces the clock used to time backend fetches
func (s *PortfolioService) WithClock(now func() time.Time) *PortfolioService {
	s.now = now
	return s
}

// TTL returns the expiry applied by GetPortfolio
func (s *PortfolioService) TTL() time.Duration {
	return s.ttl
}

// GetPortfolio returns the portfolio of address on chain using the configured TTL
func (s *PortfolioService) GetPortfolio(ctx context.Context, chain entities.Chain, address string) (*entities.PortfolioSnapshot, error) {
	return s.GetPortfolioWithTTL(ctx, chain, address, s.ttl)
}

// GetPortfolioWithTTL returns a fresh cached snapshot when one exists.
// Otherwise it fetches from the backend, writes the snapshot once with the
// given ttl and returns exactly the value written. Failures are never
// masked: a cache read or write error is CacheUnavailable and a backend
// error is BackendUnavailable, with nothing written. When ctx is done the
// context error is returned as-is.
func (s *PortfolioService) GetPortfolioWithTTL(ctx context.Context, chain entities.Chain, address string, ttl time.Duration) (*entities.PortfolioSnapshot, error) {
	const op = "GetPortfolio"

	backend, address, err := resolveBackend(s.backends, op, chain, address)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, apperrors.NewValidationError(op, chain, address, "ttl must be positive")
	}

	logger := s.logger.With(zap.String("chain", chain.String()), zap.String("address", address))

	cached, found, err := s.cache.GetBalance(ctx, address, chain)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Debug("Request canceled during cache read", zap.Error(ctxErr))
			return nil, ctxErr
		}
		s.metrics.observeLookup(chain.String(), lookupError)
		logger.Warn("Balance cache read failed", zap.Error(err))
		return nil, apperrors.NewCacheUnavailable(op, chain, address, err)
	}
	if found {
		s.metrics.observeLookup(chain.String(), lookupHit)
		logger.Debug("Cache hit")
		return cached, nil
	}
	s.metrics.observeLookup(chain.String(), lookupMiss)

	start := s.now()
	snapshot, err := backend.FetchPortfolio(ctx, address)
	elapsed := s.now().Sub(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.metrics.observeFetch(chain.String(), fetchCanceled, elapsed)
			logger.Debug("Request canceled during backend fetch", zap.Duration("duration", elapsed), zap.Error(ctxErr))
			return nil, ctxErr
		}
		s.metrics.observeFetch(chain.String(), fetchError, elapsed)
		logger.Warn("Backend fetch failed", zap.Duration("duration", elapsed), zap.Error(err))
		return nil, apperrors.NewBackendUnavailable(op, chain, address, err)
	}
	s.metrics.observeFetch(chain.String(), fetchSuccess, elapsed)

	if err := s.cache.PutBalance(ctx, address, chain, snapshot, ttl); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Debug("Request canceled during cache write", zap.Error(ctxErr))
			return nil, ctxErr
		}
		logger.Warn("Balance cache write failed", zap.Error(err))
		return nil, apperrors.NewCacheUnavailable(op, chain, address, err)
	}

	logger.Debug("Cached portfolio",
		zap.Int("assets", snapshot.TotalTokensCount),
		zap.Duration("fetch_duration", elapsed),
		zap.Duration("ttl", ttl),
	)

	return snapshot, nil
}

func indexBackends(backends []repositories.ChainBackend) map[entities.Chain]repositories.ChainBackend {
	backends = lo.Filter(backends, func(b repositories.ChainBackend, _ int) bool {
		return b != nil
	})
	return lo.KeyBy(backends, func(b repositories.ChainBackend) entities.Chain {
		return b.Chain()
	})
}

// resolveBackend validates the chain and address of a request and returns
// the serving backend with the address in its cache-key form
func resolveBackend(backends map[entities.Chain]repositories.ChainBackend, op string, chain entities.Chain, address string) (repositories.ChainBackend, string, error) {
	backend, ok := backends[chain]
	if !ok {
		return nil, "", apperrors.NewValidationError(op, chain, address, "unsupported chain: "+chain.String())
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return nil, "", apperrors.NewValidationError(op, chain, address, "address is required")
	}
	if !backend.ValidateAddress(address) {
		return nil, "", apperrors.NewValidationError(op, chain, address, "invalid "+chain.String()+" address")
	}

	return backend, chain.NormalizeAddress(address), nil
}
