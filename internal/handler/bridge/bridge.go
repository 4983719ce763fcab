// Package bridge exposes the broadcast channel to WebSocket clients such as
// overlay pages running in OBS browser sources.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/playperu/scoreboard/internal/notify"
)

type Handler struct {
	channel notify.Channel
	logger  *slog.Logger
}

// NewHandler bridges ch. A nil ch answers 503.
func NewHandler(logger *slog.Logger, ch notify.Channel) *Handler {
	return &Handler{channel: ch, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/broadcast", h.broadcast)
	return r
}

// broadcast forwards every channel message to the client and publishes every
// well-formed envelope the client sends. Clients drop their own messages by
// _meta.sender, like any other notifier.
func (h *Handler) broadcast(w http.ResponseWriter, r *http.Request) {
	if h.channel == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "broadcast unavailable"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	msgs, err := h.channel.Subscribe(ctx)
	if err != nil {
		h.logger.Warn("broadcast subscribe failed", "error", err)
		conn.Close(websocket.StatusInternalError, "broadcast unavailable")
		return
	}

	go func() {
		defer cancel()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				h.logger.Debug("websocket read ended", "error", err)
				return
			}
			if typ != websocket.MessageText || !validEnvelope(data) {
				h.logger.Debug("dropping malformed client message")
				continue
			}
			if err := h.channel.Publish(ctx, data); err != nil {
				h.logger.Warn("publishing client message", "error", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case data, ok := <-msgs:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "broadcast closed")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func validEnvelope(data []byte) bool {
	var env notify.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}
	return env.Type != "" && env.Meta.ID != "" && env.Meta.Sender != ""
}
