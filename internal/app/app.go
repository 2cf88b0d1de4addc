package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/application/services"
	"github.com/bimakw/chain-portfolio/internal/config"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/cache"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/database"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/ethereum"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/market"
	"github.com/bimakw/chain-portfolio/internal/infrastructure/solana"
	"github.com/bimakw/chain-portfolio/internal/presentation/handlers"
)

// App holds the components shared by the API server and portfolioctl
type App struct {
	Config *config.Config
	Logger *zap.Logger

	// DB is set only for the postgres cache backend
	DB    *database.PostgresDB
	Store repositories.CacheRepository

	Portfolio    *services.PortfolioService
	Transactions *services.TransactionService

	// Upstreams are the chain nodes reported by /health
	Upstreams map[string]handlers.HealthChecker

	closers []func() error
}

// New connects the cache store and both chain nodes and wires the services.
// Portfolio metrics are registered on reg when it is not nil.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Upstreams: make(map[string]handlers.HealthChecker),
	}

	if err := a.connectStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	ethClient, err := ethereum.NewClient(cfg.Ethereum, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		ethClient.Close()
		return nil
	})
	a.Upstreams["ethereum"] = ethClient

	solClient := solana.NewClient(cfg.Solana, logger)
	a.closers = append(a.closers, solClient.Close)
	a.Upstreams["solana"] = solClient

	// DexScreener first, then the on-chain name of each chain
	dex := market.NewDexScreenerClient(cfg.Price, logger)
	prices := market.NewCachedPriceProvider(dex, a.Store, cfg.Cache.PriceTTL, logger)
	metadata := market.NewCachedMetadataProvider(
		market.NewFallbackMetadataProvider(
			dex,
			ethereum.NewMetadataReader(ethClient),
			solana.NewMetadataReader(solClient),
		),
		a.Store,
		cfg.Cache.MetadataTTL,
		logger,
	)

	backends := []repositories.ChainBackend{
		ethereum.NewBackend(ethClient, prices, metadata, cfg.Ethereum, logger),
		solana.NewBackend(solClient, prices, metadata, cfg.Solana, logger),
	}

	a.Portfolio = services.NewPortfolioService(backends, a.Store, cfg.Cache.TTL, services.NewPortfolioMetrics(reg), logger)
	a.Transactions = services.NewTransactionService(backends, logger)

	return a, nil
}

func (a *App) connectStore(ctx context.Context) error {
	if a.Config.Cache.Backend == config.CacheBackendPostgres {
		db, err := database.NewPostgresDB(ctx, a.Config.Database, a.Logger)
		if err != nil {
			return err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)

		if a.Config.Database.AutoMigrate {
			if err := database.MigrateUp(ctx, db.DB().DB); err != nil {
				return err
			}
			a.Logger.Info("Cache schema is up to date")
		}
	}

	store, closeStore, err := cache.NewStore(a.Config, a.DB, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create cache store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	a.Logger.Info("Cache store ready",
		zap.String("backend", a.Config.Cache.Backend),
		zap.Duration("ttl", a.Config.Cache.TTL),
	)
	return nil
}

// Close releases every connection in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
