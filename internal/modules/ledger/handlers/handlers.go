// Package handlers provides HTTP handlers for accounts and trades.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds request bodies, including bulk trade imports.
const maxBodyBytes = 4 << 20

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// AccountRequest is the body of account create/update calls.
type AccountRequest struct {
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
	OwnerID  string          `json:"owner_id"`
}

func (r AccountRequest) toDomain() domain.Account {
	return domain.Account{Name: r.Name, Currency: r.Currency, Balance: r.Balance, OwnerID: r.OwnerID}
}

// TradeRequest is the body of trade create/update calls.
// trade_date accepts YYYY-MM-DD or RFC3339.
type TradeRequest struct {
	Ticker    string          `json:"ticker"`
	AssetType string          `json:"asset_type"`
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	TradeDate string          `json:"trade_date"`
	AccountID string          `json:"account_id"`
	Reason    string          `json:"reason"`
}

func (r TradeRequest) toDomain() (domain.Trade, error) {
	date, err := parseTradeDate(r.TradeDate)
	if err != nil {
		return domain.Trade{}, err
	}
	return domain.Trade{
		Ticker:    r.Ticker,
		AssetType: domain.AssetType(r.AssetType),
		Type:      domain.TradeType(r.Type),
		Quantity:  r.Quantity,
		Price:     r.Price,
		Currency:  r.Currency,
		TradeDate: date,
		AccountID: r.AccountID,
		Reason:    r.Reason,
	}, nil
}

func parseTradeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: trade_date %q must be YYYY-MM-DD or RFC3339", domain.ErrInvalidTrade, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// HandleCreateAccount creates an account.
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req.toDomain())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// HandleListAccounts lists the accounts of ?owner=.
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}

	accounts, err := h.service.ListAccountsByOwner(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// HandleGetAccount returns one account.
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// HandleUpdateAccount replaces an account's fields.
func (h *Handler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), req.toDomain())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// HandleDeleteAccount deletes an account and its trades.
func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateTrades accepts a single trade object or an array of trades.
// Arrays are stored atomically.
func (h *Handler) HandleCreateTrades(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var reqs []TradeRequest
	isArray := bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
	if isArray {
		if err := json.Unmarshal(raw, &reqs); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
	} else {
		var single TradeRequest
		if err := json.Unmarshal(raw, &single); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		reqs = []TradeRequest{single}
	}

	trades := make([]domain.Trade, 0, len(reqs))
	for i, req := range reqs {
		t, err := req.toDomain()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("trade %d: %v", i, err))
			return
		}
		trades = append(trades, t)
	}

	created, err := h.service.CreateTrades(r.Context(), trades)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if isArray {
		h.writeJSON(w, http.StatusCreated, created)
		return
	}
	h.writeJSON(w, http.StatusCreated, created[0])
}

// HandleListTrades lists trades filtered by owner, account, ticker, with sort and paging.
func (h *Handler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.TradeFilter{
		OwnerID:   strings.TrimSpace(q.Get("owner")),
		AccountID: strings.TrimSpace(q.Get("account")),
		Ticker:    strings.TrimSpace(q.Get("ticker")),
		Sort:      ledger.TradeSort(q.Get("sort")),
	}

	switch filter.Sort {
	case "", ledger.SortDateAsc, ledger.SortDateDesc:
	default:
		h.writeError(w, http.StatusBadRequest, "sort must be date_asc or date_desc")
		return
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		h.writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		h.writeError(w, http.StatusBadRequest, "offset: "+err.Error())
		return
	}

	trades, err := h.service.ListTrades(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// HandleGetTrade returns one trade.
func (h *Handler) HandleGetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.service.GetTrade(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

// HandleUpdateTrade replaces a trade.
func (h *Handler) HandleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := req.toDomain()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trade, err := h.service.UpdateTrade(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

// HandleDeleteTrade deletes a trade.
func (h *Handler) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTrade(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

// writeServiceError maps ledger/domain errors onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTrade), errors.Is(err, domain.ErrInvalidAccount):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Ledger request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
