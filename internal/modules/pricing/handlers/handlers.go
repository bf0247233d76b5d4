// Package handlers provides HTTP handlers for quote lookups.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler serves cached quotes.
type Handler struct {
	lookup domain.PriceLookup
	log    zerolog.Logger
}

// NewHandler creates a new pricing handler
func NewHandler(lookup domain.PriceLookup, log zerolog.Logger) *Handler {
	return &Handler{
		lookup: lookup,
		log:    log.With().Str("handler", "pricing").Logger(),
	}
}

// PriceResponse is the body of a successful quote lookup.
type PriceResponse struct {
	Ticker    string           `json:"ticker"`
	AssetType domain.AssetType `json:"asset_type"`
	Price     decimal.Decimal  `json:"price"`
}

// HandleGetPrice returns the quote for {assetType}/{ticker}.
// Unavailable quotes map to 502, unknown asset types to 400.
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	assetType := domain.AssetType(chi.URLParam(r, "assetType"))
	ticker := domain.NormalizeTicker(chi.URLParam(r, "ticker"))

	if !assetType.Valid() {
		h.writeError(w, http.StatusBadRequest, "unsupported asset type (use stock|crypto)")
		return
	}
	if ticker == "" {
		h.writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	price, err := h.lookup.GetPrice(r.Context(), ticker, assetType)
	if err != nil {
		if errors.Is(err, pricing.ErrUnsupportedAssetType) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Debug().Err(err).Str("ticker", ticker).Msg("Quote unavailable")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, PriceResponse{Ticker: ticker, AssetType: assetType, Price: price})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
