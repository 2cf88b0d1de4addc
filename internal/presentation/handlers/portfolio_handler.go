package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/application/services"
)

// PortfolioHandler handles HTTP requests for wallet balance endpoints
type PortfolioHandler struct {
	service *services.PortfolioService
	logger  *zap.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service *services.PortfolioService, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the balance routes on a chi router
func (h *PortfolioHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{chain}/balances/{address}", h.GetBalances)
}

// GetBalances handles GET /api/v1/{chain}/balances/{address}
func (h *PortfolioHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	const op = "GetBalances"

	chain, err := chainParam(r, op)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	address := chi.URLParam(r, "address")

	snapshot, err := h.service.GetPortfolio(r.Context(), chain, address)
	if err != nil {
		respondError(w, h.logger.With(zap.String("chain", chain.String()), zap.String("address", address)), err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: snapshot})
}
