package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

var (
	_ repositories.CacheRepository  = (*MockCacheRepository)(nil)
	_ repositories.ChainBackend     = (*MockChainBackend)(nil)
	_ repositories.PriceProvider    = (*MockPriceProvider)(nil)
	_ repositories.MetadataProvider = (*MockMetadataProvider)(nil)
)

type MockCall struct {
	Method string
	Args   []interface{}
}

// FakeClock is a manually advanced clock
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// MockCacheRepository is an in-memory CacheRepository with lazy expiry
type MockCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time

	// Function hooks for custom behavior
	GetBalanceFunc  func(ctx context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error)
	PutBalanceFunc  func(ctx context.Context, address string, chain entities.Chain, snapshot *entities.PortfolioSnapshot, ttl time.Duration) error
	GetPriceFunc    func(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, bool, error)
	PutPriceFunc    func(ctx context.Context, tokenID string, chain entities.Chain, quote *entities.PriceQuote, ttl time.Duration) error
	GetMetadataFunc func(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, bool, error)
	PutMetadataFunc func(ctx context.Context, tokenID string, chain entities.Chain, meta *entities.TokenMetadata, ttl time.Duration) error
	HealthCheckFunc func(ctx context.Context) error

	// Call tracking
	Calls []MockCall
}

// NewMockCacheRepository creates a mock cache reading time from now,
// or from the wall clock when now is nil
func NewMockCacheRepository(now func() time.Time) *MockCacheRepository {
	if now == nil {
		now = time.Now
	}
	return &MockCacheRepository{
		entries: make(map[string]cacheEntry),
		now:     now,
		Calls:   make([]MockCall, 0),
	}
}

func cacheKey(namespace, subject string, chain entities.Chain) string {
	return fmt.Sprintf("%s:%s:%s", namespace, chain, chain.NormalizeAddress(subject))
}

func (m *MockCacheRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockCacheRepository) get(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok || !entry.expiresAt.After(m.now()) {
		return nil, false
	}
	return entry.value, true
}

func (m *MockCacheRepository) put(key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	m.mu.Lock()
	m.entries[key] = cacheEntry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MockCacheRepository) GetBalance(ctx context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error) {
	m.record("GetBalance", address, chain)
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, address, chain)
	}

	v, ok := m.get(cacheKey("balance", address, chain))
	if !ok {
		return nil, false, nil
	}
	return v.(*entities.PortfolioSnapshot), true, nil
}

func (m *MockCacheRepository) PutBalance(ctx context.Context, address string, chain entities.Chain, snapshot *entities.PortfolioSnapshot, ttl time.Duration) error {
	m.record("PutBalance", address, chain, snapshot, ttl)
	if m.PutBalanceFunc != nil {
		return m.PutBalanceFunc(ctx, address, chain, snapshot, ttl)
	}
	return m.put(cacheKey("balance", address, chain), snapshot, ttl)
}

func (m *MockCacheRepository) GetPrice(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, bool, error) {
	m.record("GetPrice", tokenID, chain)
	if m.GetPriceFunc != nil {
		return m.GetPriceFunc(ctx, tokenID, chain)
	}

	v, ok := m.get(cacheKey("price", tokenID, chain))
	if !ok {
		return nil, false, nil
	}
	return v.(*entities.PriceQuote), true, nil
}

func (m *MockCacheRepository) PutPrice(ctx context.Context, tokenID string, chain entities.Chain, quote *entities.PriceQuote, ttl time.Duration) error {
	m.record("PutPrice", tokenID, chain, quote, ttl)
	if m.PutPriceFunc != nil {
		return m.PutPriceFunc(ctx, tokenID, chain, quote, ttl)
	}
	return m.put(cacheKey("price", tokenID, chain), quote, ttl)
}

func (m *MockCacheRepository) GetMetadata(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, bool, error) {
	m.record("GetMetadata", tokenID, chain)
	if m.GetMetadataFunc != nil {
		return m.GetMetadataFunc(ctx, tokenID, chain)
	}

	v, ok := m.get(cacheKey("metadata", tokenID, chain))
	if !ok {
		return nil, false, nil
	}
	return v.(*entities.TokenMetadata), true, nil
}

func (m *MockCacheRepository) PutMetadata(ctx context.Context, tokenID string, chain entities.Chain, meta *entities.TokenMetadata, ttl time.Duration) error {
	m.record("PutMetadata", tokenID, chain, meta, ttl)
	if m.PutMetadataFunc != nil {
		return m.PutMetadataFunc(ctx, tokenID, chain, meta, ttl)
	}
	return m.put(cacheKey("metadata", tokenID, chain), meta, ttl)
}

func (m *MockCacheRepository) HealthCheck(ctx context.Context) error {
	m.record("HealthCheck")
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}

// CallCount returns how many times method was called
func (m *MockCacheRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return countCalls(m.Calls, method)
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]cacheEntry)
	m.Calls = make([]MockCall, 0)
}

// MockChainBackend is a mock implementation of ChainBackend
type MockChainBackend struct {
	mu sync.Mutex

	ChainValue entities.Chain

	// Function hooks for custom behavior
	ValidateAddressFunc   func(address string) bool
	FetchPortfolioFunc    func(ctx context.Context, address string) (*entities.PortfolioSnapshot, error)
	FetchTransactionsFunc func(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error)

	// Call tracking
	Calls []MockCall
}

func NewMockChainBackend(chain entities.Chain) *MockChainBackend {
	return &MockChainBackend{
		ChainValue: chain,
		Calls:      make([]MockCall, 0),
	}
}

func (m *MockChainBackend) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockChainBackend) Chain() entities.Chain {
	return m.ChainValue
}

func (m *MockChainBackend) ValidateAddress(address string) bool {
	if m.ValidateAddressFunc != nil {
		return m.ValidateAddressFunc(address)
	}
	return address != ""
}

func (m *MockChainBackend) FetchPortfolio(ctx context.Context, address string) (*entities.PortfolioSnapshot, error) {
	m.record("FetchPortfolio", address)
	if m.FetchPortfolioFunc != nil {
		return m.FetchPortfolioFunc(ctx, address)
	}
	return entities.NewPortfolioSnapshot(m.ChainValue, address, 0, 0, nil, time.Now()), nil
}

func (m *MockChainBackend) FetchTransactions(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error) {
	m.record("FetchTransactions", address, limit)
	if m.FetchTransactionsFunc != nil {
		return m.FetchTransactionsFunc(ctx, address, limit)
	}
	return []entities.TransactionRecord{}, nil
}

// CallCount returns how many times method was called
func (m *MockChainBackend) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countCalls(m.Calls, method)
}

// MockPriceProvider is a mock implementation of PriceProvider
type MockPriceProvider struct {
	mu sync.Mutex

	PriceOfFunc func(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, error)

	Calls []MockCall
}

func (m *MockPriceProvider) PriceOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "PriceOf", Args: []interface{}{tokenID, chain}})
	m.mu.Unlock()

	if m.PriceOfFunc != nil {
		return m.PriceOfFunc(ctx, tokenID, chain)
	}
	return nil, errors.New("no price")
}

// CallCount returns how many lookups were made
func (m *MockPriceProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockMetadataProvider is a mock implementation of MetadataProvider
type MockMetadataProvider struct {
	mu sync.Mutex

	MetadataOfFunc func(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error)

	Calls []MockCall
}

func (m *MockMetadataProvider) MetadataOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "MetadataOf", Args: []interface{}{tokenID, chain}})
	m.mu.Unlock()

	if m.MetadataOfFunc != nil {
		return m.MetadataOfFunc(ctx, tokenID, chain)
	}
	return nil, errors.New("no metadata")
}

// CallCount returns how many lookups were made
func (m *MockMetadataProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}

func countCalls(calls []MockCall, method string) int {
	n := 0
	for _, c := range calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
