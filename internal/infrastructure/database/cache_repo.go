package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ensure CacheRepo implements CacheRepository
var _ repositories.CacheRepository = (*CacheRepo)(nil)

// CacheRepo implements CacheRepository using PostgreSQL.
// Expiry is evaluated lazily on read; rows past expires_at are ignored
// until PurgeExpired removes them.
type CacheRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewCacheRepo creates a new PostgreSQL cache repository
func NewCacheRepo(db *sqlx.DB) *CacheRepo {
	return &CacheRepo{db: db, now: time.Now}
}

// WithClock replaces the clock used for expiry, for tests
func (r *CacheRepo) WithClock(now func() time.Time) *CacheRepo {
	r.now = now
	return r
}

// priceRow holds the result of the price query
type priceRow struct {
	PriceUSD       float64  `db:"price_usd"`
	PriceChange24h *float64 `db:"price_change_24h"`
}

// GetBalance retrieves a non-expired snapshot for an address
func (r *CacheRepo) GetBalance(ctx context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error) {
	query := `
		SELECT data FROM cached_balances
		WHERE address = $1 AND chain = $2 AND expires_at > $3
	`

	var data []byte
	if err := r.db.GetContext(ctx, &data, query, chain.NormalizeAddress(address), string(chain), r.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached balance: %w", err)
	}

	var snapshot entities.PortfolioSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached balance: %w", err)
	}

	return &snapshot, true, nil
}

// PutBalance upserts a snapshot
func (r *CacheRepo) PutBalance(ctx context.Context, address string, chain entities.Chain, snapshot *entities.PortfolioSnapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}

	query := `
		INSERT INTO cached_balances (address, chain, data, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address, chain) DO UPDATE SET
			data = EXCLUDED.data,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, chain.NormalizeAddress(address), string(chain), data, r.now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to upsert cached balance: %w", err)
	}

	return nil
}

// GetPrice retrieves a non-expired price quote for a token
func (r *CacheRepo) GetPrice(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, bool, error) {
	query := `
		SELECT price_usd, price_change_24h FROM cached_prices
		WHERE token_id = $1 AND chain = $2 AND expires_at > $3
	`

	var row priceRow
	if err := r.db.GetContext(ctx, &row, query, chain.NormalizeAddress(tokenID), string(chain), r.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached price: %w", err)
	}

	return &entities.PriceQuote{
		PriceUSD:  row.PriceUSD,
		Change24h: row.PriceChange24h,
	}, true, nil
}

// PutPrice upserts a price quote
func (r *CacheRepo) PutPrice(ctx context.Context, tokenID string, chain entities.Chain, quote *entities.PriceQuote, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	query := `
		INSERT INTO cached_prices (token_id, chain, price_usd, price_change_24h, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_id, chain) DO UPDATE SET
			price_usd = EXCLUDED.price_usd,
			price_change_24h = EXCLUDED.price_change_24h,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		chain.NormalizeAddress(tokenID),
		string(chain),
		quote.PriceUSD,
		quote.Change24h,
		r.now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cached price: %w", err)
	}

	return nil
}

// GetMetadata retrieves non-expired metadata for a token
func (r *CacheRepo) GetMetadata(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, bool, error) {
	query := `
		SELECT metadata FROM cached_metadata
		WHERE token_id = $1 AND chain = $2 AND expires_at > $3
	`

	var data []byte
	if err := r.db.GetContext(ctx, &data, query, chain.NormalizeAddress(tokenID), string(chain), r.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached metadata: %w", err)
	}

	var meta entities.TokenMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached metadata: %w", err)
	}

	return &meta, true, nil
}

// PutMetadata upserts token metadata
func (r *CacheRepo) PutMetadata(ctx context.Context, tokenID string, chain entities.Chain, meta *entities.TokenMetadata, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO cached_metadata (token_id, chain, metadata, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id, chain) DO UPDATE SET
			metadata = EXCLUDED.metadata,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, chain.NormalizeAddress(tokenID), string(chain), data, r.now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to upsert cached metadata: %w", err)
	}

	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed
func (r *CacheRepo) PurgeExpired(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	var total int64
	for _, table := range []string{"cached_balances", "cached_prices", "cached_metadata"} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE expires_at <= $1", now)
		if err != nil {
			return 0, fmt.Errorf("failed to purge %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count purged rows in %s: %w", table, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	return total, nil
}

// HealthCheck performs a health check on the database
func (r *CacheRepo) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
