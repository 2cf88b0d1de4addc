package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/config"
)

const connectTimeout = 5 * time.Second

// PostgresDB owns the connection pool behind the durable cache store
type PostgresDB struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresDB opens the pool and pings it within connectTimeout
func NewPostgresDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresDB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	fields := []zap.Field{zap.Int("max_open_conns", cfg.MaxOpenConns)}
	if cfg.URL != "" {
		fields = append(fields, zap.String("source", "DATABASE_URL"))
	} else {
		fields = append(fields,
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("database", cfg.Name),
		)
	}
	logger.Info("Connected to PostgreSQL cache store", fields...)

	return &PostgresDB{
		db:     db,
		logger: logger.Named("postgres"),
	}, nil
}

// Close closes the pool
func (p *PostgresDB) Close() error {
	p.logger.Debug("Closing PostgreSQL pool")
	return p.db.Close()
}

// DB returns the underlying sqlx.DB
func (p *PostgresDB) DB() *sqlx.DB {
	return p.db
}
