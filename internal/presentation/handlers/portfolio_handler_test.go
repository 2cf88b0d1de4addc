package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/application/services"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
	"github.com/bimakw/chain-portfolio/internal/testutil"
)

func setupPortfolioRouter(cache repositories.CacheRepository, backends ...repositories.ChainBackend) http.Handler {
	logger := zap.NewNop()
	service := services.NewPortfolioService(backends, cache, 30*time.Second, nil, logger)
	handler := NewPortfolioHandler(service, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", handler.RegisterRoutes)
	return r
}

func TestPortfolioHandler_GetBalances(t *testing.T) {
	t.Run("returns snapshot wrapped in data", func(t *testing.T) {
		backend := testutil.NewMockChainBackend(entities.ChainEthereum)
		backend.FetchPortfolioFunc = func(ctx context.Context, address string) (*entities.PortfolioSnapshot, error) {
			return testutil.CreateTestSnapshot(), nil
		}
		r := setupPortfolioRouter(testutil.NewMockCacheRepository(nil), backend)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/ethereum/balances/"+testutil.EthAddress, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		var response struct {
			Data entities.PortfolioSnapshot `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Data.Chain != entities.ChainEthereum {
			t.Errorf("expected chain ethereum, got %s", response.Data.Chain)
		}
		if response.Data.TotalTokensCount != 2 {
			t.Errorf("expected 2 assets, got %d", response.Data.TotalTokensCount)
		}
		if len(response.Data.Tokens) != 1 || response.Data.Tokens[0].Symbol != "USDC" {
			t.Errorf("unexpected tokens: %+v", response.Data.Tokens)
		}
	})

	t.Run("chain selector is case-insensitive", func(t *testing.T) {
		backend := testutil.NewMockChainBackend(entities.ChainSolana)
		r := setupPortfolioRouter(testutil.NewMockCacheRepository(nil), backend)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/Solana/balances/"+testutil.SolAddress, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})

	t.Run("maps errors to status and code", func(t *testing.T) {
		tests := []struct {
			name       string
			path       string
			setup      func(cache *testutil.MockCacheRepository, backend *testutil.MockChainBackend)
			wantStatus int
			wantCode   string
		}{
			{
				name:       "unknown chain",
				path:       "/api/v1/bitcoin/balances/" + testutil.EthAddress,
				wantStatus: http.StatusBadRequest,
				wantCode:   "validation_error",
			},
			{
				name: "invalid address",
				path: "/api/v1/ethereum/balances/0x123",
				setup: func(cache *testutil.MockCacheRepository, backend *testutil.MockChainBackend) {
					backend.ValidateAddressFunc = func(address string) bool { return len(address) == 42 }
				},
				wantStatus: http.StatusBadRequest,
				wantCode:   "validation_error",
			},
			{
				name: "backend down",
				path: "/api/v1/ethereum/balances/" + testutil.EthAddress,
				setup: func(cache *testutil.MockCacheRepository, backend *testutil.MockChainBackend) {
					backend.FetchPortfolioFunc = func(ctx context.Context, address string) (*entities.PortfolioSnapshot, error) {
						return nil, errors.New("dial tcp: connection refused")
					}
				},
				wantStatus: http.StatusBadGateway,
				wantCode:   "backend_unavailable",
			},
			{
				name: "cache down",
				path: "/api/v1/ethereum/balances/" + testutil.EthAddress,
				setup: func(cache *testutil.MockCacheRepository, backend *testutil.MockChainBackend) {
					cache.GetBalanceFunc = func(ctx context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error) {
						return nil, false, errors.New("pq: connection refused")
					}
				},
				wantStatus: http.StatusServiceUnavailable,
				wantCode:   "cache_unavailable",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cache := testutil.NewMockCacheRepository(nil)
				backend := testutil.NewMockChainBackend(entities.ChainEthereum)
				if tt.setup != nil {
					tt.setup(cache, backend)
				}
				r := setupPortfolioRouter(cache, backend)

				req := httptest.NewRequest(http.MethodGet, tt.path, nil)
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)

				if w.Code != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
				}

				var response ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if response.Code != tt.wantCode {
					t.Errorf("expected code %s, got %s", tt.wantCode, response.Code)
				}
				if response.Error == "" {
					t.Error("expected error message")
				}
			})
		}
	})

	t.Run("expired request deadline is a gateway timeout", func(t *testing.T) {
		cache := testutil.NewMockCacheRepository(nil)
		cache.GetBalanceFunc = func(ctx context.Context, address string, chain entities.Chain) (*entities.PortfolioSnapshot, bool, error) {
			return nil, false, ctx.Err()
		}
		r := setupPortfolioRouter(cache, testutil.NewMockChainBackend(entities.ChainEthereum))

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ethereum/balances/"+testutil.EthAddress, nil).WithContext(ctx)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusGatewayTimeout {
			t.Errorf("expected status 504, got %d", w.Code)
		}
		var response ErrorResponse
		_ = json.NewDecoder(w.Body).Decode(&response)
		if response.Code != "request_canceled" {
			t.Errorf("expected code request_canceled, got %s", response.Code)
		}
	})

	t.Run("does not leak upstream error text", func(t *testing.T) {
		backend := testutil.NewMockChainBackend(entities.ChainEthereum)
		backend.FetchPortfolioFunc = func(ctx context.Context, address string) (*entities.PortfolioSnapshot, error) {
			return nil, errors.New("https://mainnet.example/v3/SECRET-KEY: 401")
		}
		r := setupPortfolioRouter(testutil.NewMockCacheRepository(nil), backend)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/ethereum/balances/"+testutil.EthAddress, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var response ErrorResponse
		_ = json.NewDecoder(w.Body).Decode(&response)
		if response.Error != "ethereum backend unavailable" {
			t.Errorf("unexpected public message: %s", response.Error)
		}
	})
}
