package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/application/services"
	"github.com/bimakw/chain-portfolio/internal/apperrors"
)

// TransactionHandler handles HTTP requests for transaction history
type TransactionHandler struct {
	service *services.TransactionService
	logger  *zap.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(service *services.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the transaction routes
func (h *TransactionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{chain}/transactions/{address}", h.GetTransactions)
}

// GetTransactions handles GET /api/v1/{chain}/transactions/{address}?limit=N
func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "GetTransactions"

	chain, err := chainParam(r, op)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	address := chi.URLParam(r, "address")

	// Out of range values are clamped by the service
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			respondError(w, h.logger, apperrors.NewValidationError(op, chain, address, "limit must be an integer"))
			return
		}
	}

	txs, err := h.service.GetTransactions(r.Context(), chain, address, limit)
	if err != nil {
		respondError(w, h.logger.With(zap.String("chain", chain.String()), zap.String("address", address)), err)
		return
	}

	respondJSON(w, http.StatusOK, ListResponse{Data: txs, Count: len(txs)})
}
