package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
	"github.com/zhouzirui/kawaii-watch/backend/pkg/utils"
)

const heartbeatPeriod = 15 * time.Second

// Hub is the observer registry the stream subscribes to.
type Hub interface {
	Register() *broadcast.Client
	Unregister(c *broadcast.Client)
}

// Handler streams the live packet feed to read-only observers via Server-Sent
// Events. Each event carries one packet envelope.
type Handler struct {
	hub       Hub
	heartbeat time.Duration
}

// New creates a new stream handler
func New(hub Hub) *Handler {
	return &Handler{hub: hub, heartbeat: heartbeatPeriod}
}

// RegisterRoutes mounts the stream under the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := h.hub.Register()
	defer h.hub.Unregister(client)
	log.Printf("[sse] observer connected id=%s remote=%s", client.ID, r.RemoteAddr)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] observer left id=%s", client.ID)
			return
		case <-client.Done():
			return
		case frame := <-client.Frames():
			if err := utils.WriteSSEEvent(w, flusher, "", frame); err != nil {
				log.Printf("[sse] write failed id=%s: %v", client.ID, err)
				return
			}
		case <-ticker.C:
			if err := utils.WriteSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
