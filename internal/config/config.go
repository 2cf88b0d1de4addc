package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Ethereum node configuration
	Ethereum EthereumConfig

	// Solana node configuration
	Solana SolanaConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Cache store configuration
	Cache CacheConfig

	// Price and metadata provider configuration
	Price PriceConfig

	// API server configuration
	API APIConfig

	// Logging configuration
	Log LogConfig
}

// EthereumConfig holds Ethereum node connection settings
type EthereumConfig struct {
	RPCURL         string        `envconfig:"ETH_RPC_URL" default:"https://eth.llamarpc.com" validate:"required,url"`
	ChainID        int64         `envconfig:"ETH_CHAIN_ID" default:"1" validate:"gt=0"`
	RequestTimeout time.Duration `envconfig:"ETH_REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	MaxRetries     int           `envconfig:"ETH_MAX_RETRIES" default:"3" validate:"gte=0"`
	RetryDelay     time.Duration `envconfig:"ETH_RETRY_DELAY" default:"1s" validate:"gte=0"`
	MaxConcurrency int           `envconfig:"ETH_MAX_CONCURRENCY" default:"8" validate:"gt=0"`

	// Price lookups for the native asset go through this token (WETH)
	NativePriceID string `envconfig:"ETH_NATIVE_PRICE_ID" default:"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2" validate:"required"`

	// Token allow-list override, comma-separated contract addresses. Empty uses the built-in list.
	TokenAllowlist []string `envconfig:"ETH_TOKEN_ALLOWLIST"`

	// Transfer-log lookback for transaction history, 0 disables it
	TxLookbackBlocks uint64 `envconfig:"ETH_TX_LOOKBACK_BLOCKS" default:"1000"`
}

// SolanaConfig holds Solana RPC connection settings
type SolanaConfig struct {
	RPCURL              string        `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com" validate:"required,url"`
	RequestTimeout      time.Duration `envconfig:"SOLANA_REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	Commitment          string        `envconfig:"SOLANA_COMMITMENT" default:"confirmed" validate:"oneof=processed confirmed finalized"`
	MaxConcurrency      int           `envconfig:"SOLANA_MAX_CONCURRENCY" default:"8" validate:"gt=0"`
	ResolveMintDecimals bool          `envconfig:"SOLANA_RESOLVE_MINT_DECIMALS" default:"true"`
	FallbackDecimals    uint8         `envconfig:"SOLANA_FALLBACK_DECIMALS" default:"9"`

	// Price lookups for the native asset go through this mint (wrapped SOL)
	NativePriceID string `envconfig:"SOLANA_NATIVE_PRICE_ID" default:"So11111111111111111111111111111111111111112" validate:"required"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	// URL takes precedence over the individual parts when set
	URL             string        `envconfig:"DATABASE_URL"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"portfolio"`
	Password        string        `envconfig:"DB_PASSWORD" default:"portfolio"`
	Name            string        `envconfig:"DB_NAME" default:"chain_portfolio"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Cache backends
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

// CacheConfig holds cache store settings
type CacheConfig struct {
	Backend     string        `envconfig:"CACHE_BACKEND" default:"postgres" validate:"oneof=postgres redis memory"`
	TTL         time.Duration `envconfig:"CACHE_TTL" default:"30s" validate:"gt=0"`
	PriceTTL    time.Duration `envconfig:"CACHE_PRICE_TTL" default:"60s" validate:"gt=0"`
	MetadataTTL time.Duration `envconfig:"CACHE_METADATA_TTL" default:"24h" validate:"gt=0"`
}

// PriceConfig holds market data provider settings
type PriceConfig struct {
	BaseURL        string        `envconfig:"PRICE_BASE_URL" default:"https://api.dexscreener.com" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"PRICE_REQUEST_TIMEOUT" default:"10s" validate:"gt=0"`
	RateLimitRPS   float64       `envconfig:"PRICE_RATE_LIMIT_RPS" default:"5" validate:"gt=0"`
	RateLimitBurst int           `envconfig:"PRICE_RATE_LIMIT_BURST" default:"5" validate:"gt=0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8000" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100" validate:"gt=0"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
}

// Load loads configuration from environment variables, reading a .env file first when present
func Load() (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct-tag constraints of every section
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns the Redis host:port address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
