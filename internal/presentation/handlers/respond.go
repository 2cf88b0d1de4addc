package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/apperrors"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

// DataResponse wraps a single resource
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ListResponse wraps a collection with its size
type ListResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes the public form of err. Server-side failures are
// logged with their full cause, client errors and cancellations only at debug.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError && apperrors.CategoryOf(err) != apperrors.CategoryCanceled {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("Rejected request", zap.Int("status", status), zap.Error(err))
	}

	respondJSON(w, status, ErrorResponse{
		Error: apperrors.PublicMessage(err),
		Code:  string(apperrors.CategoryOf(err)),
	})
}

// chainParam parses the {chain} URL parameter
func chainParam(r *http.Request, op string) (entities.Chain, error) {
	raw := chi.URLParam(r, "chain")
	chain, err := entities.ParseChain(raw)
	if err != nil {
		return "", apperrors.NewValidationError(op, "", raw, "unsupported chain: "+raw)
	}
	return chain, nil
}
