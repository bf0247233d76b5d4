// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const minStreamInterval = time.Second

// Valuer is the portfolio service surface used by the handlers.
type Valuer interface {
	Holdings(ctx context.Context, ownerID string) ([]domain.Holding, error)
	Summary(ctx context.Context, ownerID string) (domain.Summary, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service        Valuer
	streamInterval time.Duration
	log            zerolog.Logger
}

// NewHandler creates a new portfolio handler. streamInterval is the default
// push period of the summary stream.
func NewHandler(service Valuer, streamInterval time.Duration, log zerolog.Logger) *Handler {
	if streamInterval < minStreamInterval {
		streamInterval = 30 * time.Second
	}
	return &Handler{
		service:        service,
		streamInterval: streamInterval,
		log:            log.With().Str("handler", "portfolio").Logger(),
	}
}

// HoldingsResponse wraps the holdings list.
type HoldingsResponse struct {
	OwnerID  string           `json:"owner_id"`
	Holdings []domain.Holding `json:"holdings"`
}

// HandleGetHoldings returns the owner's holdings with current prices.
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	holdings, err := h.service.Holdings(r.Context(), owner)
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Failed to compute holdings")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if holdings == nil {
		holdings = []domain.Holding{}
	}

	h.writeJSON(w, http.StatusOK, HoldingsResponse{OwnerID: owner, Holdings: holdings})
}

// HandleGetSummary returns the owner's valuation summary.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), owner)
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Failed to compute summary")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleStream upgrades to a websocket and pushes a summary immediately and
// then every interval until the client goes away.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	interval := h.streamInterval
	if raw := r.URL.Query().Get("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < minStreamInterval {
			h.writeError(w, http.StatusBadRequest, "interval must be a duration of at least 1s")
			return
		}
		interval = d
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// CloseRead discards client frames and cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())
	log := h.log.With().Str("owner", owner).Logger()
	log.Debug().Dur("interval", interval).Msg("Summary stream opened")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.pushSummary(ctx, conn, owner); err != nil {
			log.Debug().Err(err).Msg("Summary stream closed")
			return
		}
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

// StreamMessage is one frame of the summary stream.
type StreamMessage struct {
	Summary *domain.Summary `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (h *Handler) pushSummary(ctx context.Context, conn *websocket.Conn, owner string) error {
	msg := StreamMessage{}
	summary, err := h.service.Summary(ctx, owner)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg.Error = err.Error()
	} else {
		msg.Summary = &summary
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return "", false
	}
	return owner, true
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
