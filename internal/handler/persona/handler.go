package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
	"github.com/zhouzirui/kawaii-watch/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	personas persona.Store
}

// New 创建persona处理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/stats", h.handleStats)
}

type personaView struct {
	Name       string         `json:"name"`
	Gender     persona.Gender `json:"gender"`
	Age        int            `json:"age"`
	Ethnicity  string         `json:"ethnicity"`
	University string         `json:"university"`
}

// handleListPersonas 列出所有persona，不暴露系统提示词
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	roster := h.personas.Roster()
	views := make([]personaView, 0, len(roster.Girls)+len(roster.Boys))
	for _, group := range [][]persona.Persona{roster.Girls, roster.Boys} {
		for _, p := range group {
			views = append(views, personaView{
				Name:       p.Name,
				Gender:     p.Gender,
				Age:        p.Age,
				Ethnicity:  p.Ethnicity,
				University: p.University,
			})
		}
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

// handleStats 返回名单规模
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.Stats())
}
