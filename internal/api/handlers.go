package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict
	"go.uber.org/zap"

	"mindrc-gateway/internal/data"
	"mindrc-gateway/internal/storage"
	"mindrc-gateway/internal/websocket"
)

const maxBodyBytes = 1 << 16

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Same permissive policy as CORS
}

type APIHandler struct {
	state  *storage.State
	hub    *websocket.Hub
	logger *zap.SugaredLogger
}

// NewAPIHandler builds the handler set. hub may be nil, in which case the
// live feed endpoint answers 404.
func NewAPIHandler(state *storage.State, hub *websocket.Hub, logger *zap.SugaredLogger) *APIHandler {
	return &APIHandler{state: state, hub: hub, logger: logger}
}

// GetAttention returns the most recent attention sample.
func (h *APIHandler) GetAttention(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]int{"attention": h.state.Attention()})
}

// GetRanges returns the current thresholds.
func (h *APIHandler) GetRanges(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.state.Thresholds())
}

// UpdateRanges applies any subset of high, medium and low. Malformed input
// never fails the request: unusable fields keep their previous values.
func (h *APIHandler) UpdateRanges(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warnw("reading update_ranges body", "error", err)
	}

	update, err := data.ParseRangeUpdate(body)
	if err != nil {
		h.logger.Warnw("ignoring unparsable update_ranges body", "error", err)
	} else if update.Empty() {
		h.logger.Infow("update_ranges carried no usable high, medium or low")
	}

	ranges := h.state.UpdateThresholds(update)
	h.logger.Infow("ranges updated", "high", ranges.High, "medium", ranges.Medium, "low", ranges.Low)
	h.writeJSON(w, map[string]string{"message": "Ranges updated successfully"})
}

type lastDispatch struct {
	Command string    `json:"command"`
	At      time.Time `json:"at"`
}

type healthResponse struct {
	Status       string        `json:"status"`
	Attention    int           `json:"attention"`
	LastDispatch *lastDispatch `json:"last_dispatch"`
}

// Health is a liveness probe. last_dispatch is null until the first command
// has been sent to the car.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Attention: h.state.Attention()}
	if b, at, ok := h.state.LastDispatch(); ok {
		resp.LastDispatch = &lastDispatch{Command: b.String(), At: at}
	}
	h.writeJSON(w, resp)
}

// HandleFeed upgrades the connection and streams live telemetry to it.
func (h *APIHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugw("feed upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump()
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debugw("writing response", "error", err)
	}
}
