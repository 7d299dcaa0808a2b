package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/kawaii-watch/backend/internal/handler/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/handler/live"
	"github.com/zhouzirui/kawaii-watch/backend/internal/handler/persona"
	"github.com/zhouzirui/kawaii-watch/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/kawaii-watch/backend/internal/middleware"
	personaModel "github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
	"github.com/zhouzirui/kawaii-watch/backend/pkg/utils"
)

// Deps are the services exposed over HTTP.
type Deps struct {
	Hub            *broadcast.Hub
	Personas       personaModel.Store
	Session        chat.SessionSource
	Chat           chat.ChatSource
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(d.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"observers": d.Hub.Count(),
		})
	})

	// Long-lived connections skip the request logger.
	live.NewWebSocketHandler(d.Hub, d.AllowedOrigins).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		stream.New(d.Hub).RegisterRoutes(api)

		api.Group(func(rest chi.Router) {
			rest.Use(middleware.Logger)
			persona.New(d.Personas).RegisterRoutes(rest)
			chat.New(d.Session, d.Chat).RegisterRoutes(rest)
		})
	})

	return r
}
