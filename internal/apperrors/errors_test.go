package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

func TestCategoryOf(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name      string
		err       error
		category  Category
		status    int
		retryable bool
		userError bool
	}{
		{
			name:      "validation",
			err:       NewValidationError("GetPortfolio", entities.ChainEthereum, "0xabc", "invalid address"),
			category:  CategoryValidation,
			status:    http.StatusBadRequest,
			userError: true,
		},
		{
			name:      "backend unavailable",
			err:       NewBackendUnavailable("FetchPortfolio", entities.ChainSolana, "addr", cause),
			category:  CategoryBackendUnavailable,
			status:    http.StatusBadGateway,
			retryable: true,
		},
		{
			name:     "cache unavailable",
			err:      NewCacheUnavailable("GetBalance", entities.ChainEthereum, "0xabc", cause),
			category: CategoryCacheUnavailable,
			status:   http.StatusServiceUnavailable,
		},
		{
			name:     "wrapped cache unavailable",
			err:      fmt.Errorf("request failed: %w", NewCacheUnavailable("PutBalance", entities.ChainEthereum, "0xabc", cause)),
			category: CategoryCacheUnavailable,
			status:   http.StatusServiceUnavailable,
		},
		{
			name:     "caller canceled",
			err:      context.Canceled,
			category: CategoryCanceled,
			status:   StatusClientClosedRequest,
		},
		{
			name:     "caller deadline",
			err:      fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			category: CategoryCanceled,
			status:   http.StatusGatewayTimeout,
		},
		{
			name:      "upstream timeout inside backend error stays backend",
			err:       NewBackendUnavailable("FetchPortfolio", entities.ChainEthereum, "0xabc", context.DeadlineExceeded),
			category:  CategoryBackendUnavailable,
			status:    http.StatusBadGateway,
			retryable: true,
		},
		{
			name:     "plain error",
			err:      cause,
			category: CategoryInternal,
			status:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, CategoryOf(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.userError, IsUserError(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewBackendUnavailable("FetchPortfolio", entities.ChainEthereum, "0xabc", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "backend_unavailable")
	assert.Contains(t, err.Error(), "ethereum")
	assert.Contains(t, err.Error(), "0xabc")
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "invalid address", PublicMessage(NewValidationError("op", entities.ChainEthereum, "x", "invalid address")))
	assert.Equal(t, "solana backend unavailable", PublicMessage(NewBackendUnavailable("op", entities.ChainSolana, "x", errors.New("boom"))))
	assert.Equal(t, "cache storage unavailable", PublicMessage(NewCacheUnavailable("op", entities.ChainSolana, "x", errors.New("boom"))))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("boom")))
	assert.Equal(t, "request canceled", PublicMessage(context.Canceled))
	assert.Equal(t, "request timed out", PublicMessage(context.DeadlineExceeded))
}
