package handlers

import (
	"net/http"
	"strconv"

	"scamlens/internal/domain/models"
	"scamlens/internal/streaming"
	"scamlens/pkg/logger"
)

// StreamingHandler serves the live scan feed
type StreamingHandler struct {
	wsHub    *streaming.WebSocketHub
	eventBus *streaming.EventBus
	recent   *streaming.Recent
	logger   *logger.Logger
}

// NewStreamingHandler creates a new streaming handler; any dependency may be nil
func NewStreamingHandler(wsHub *streaming.WebSocketHub, eventBus *streaming.EventBus, recent *streaming.Recent, log *logger.Logger) *StreamingHandler {
	return &StreamingHandler{
		wsHub:    wsHub,
		eventBus: eventBus,
		recent:   recent,
		logger:   log.WithComponent("streaming-handler"),
	}
}

// HandleWebSocket handles GET /ws/scans
func (h *StreamingHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "WebSocket streaming not available")
		return
	}

	h.logger.Debug().
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("WebSocket connection request")

	h.wsHub.ServeHTTP(w, r)
}

// GetStats handles GET /api/stream/stats
func (h *StreamingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"websocket_clients":     0,
		"event_bus_subscribers": 0,
		"nats_connected":        false,
	}
	if h.wsHub != nil {
		stats["websocket_clients"] = h.wsHub.ClientCount()
	}
	if h.eventBus != nil {
		stats["event_bus_subscribers"] = h.eventBus.SubscriberCount()
		stats["nats_connected"] = h.eventBus.NATSConnected()
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetRecent handles GET /api/stream/recent. Optional query parameters kind
// and minScore narrow the result.
func (h *StreamingHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	if h.recent == nil {
		respondError(w, http.StatusServiceUnavailable, "Recent events not available")
		return
	}

	sub := &streaming.Subscription{}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		sub.Kinds = []models.ScanKind{models.ScanKind(kind)}
	}
	if v := r.URL.Query().Get("minScore"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			respondError(w, http.StatusBadRequest, "minScore must be an integer between 0 and 100.")
			return
		}
		sub.MinScore = n
	}

	events := h.recent.Snapshot(sub)
	respondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}
