// Package handlers provides HTTP handlers for currency rates.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles currency HTTP requests
type Handler struct {
	service *currency.Service
	log     zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(service *currency.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "currency").Logger(),
	}
}

// ConvertRequest represents a request to convert an amount to USD
type ConvertRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (h *Handler) ratesResponse() map[string]interface{} {
	var refreshedAt interface{}
	if t := h.service.RefreshedAt(); !t.IsZero() {
		refreshedAt = t.UTC().Format(time.RFC3339)
	}
	return map[string]interface{}{
		"data": map[string]interface{}{
			"base":  domain.ReportingCurrency,
			"rates": h.service.Table(),
		},
		"metadata": map[string]interface{}{
			"refresh_enabled": h.service.RefreshEnabled(),
			"refreshed_at":    refreshedAt,
		},
	}
}

// HandleGetRates handles GET /api/currency/rates
func (h *Handler) HandleGetRates(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ratesResponse())
}

// HandleRefreshRates handles POST /api/currency/rates/refresh
func (h *Handler) HandleRefreshRates(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Refresh(r.Context()); err != nil {
		if errors.Is(err, currency.ErrRefreshDisabled) {
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.ratesResponse())
}

// HandleConvert handles POST /api/currency/convert
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code := domain.NormalizeCurrency(req.Currency)
	if !domain.KnownCurrency(code) {
		h.writeError(w, http.StatusBadRequest, "unknown currency")
		return
	}

	table := h.service.Table()
	rate, known := table.Rate(code)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"amount":     req.Amount,
			"currency":   code,
			"rate":       rate,
			"value_usd":  req.Amount.Mul(rate),
			"rate_known": known,
		},
	})
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
