package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/pkg/utils"
)

// SessionSource exposes the live match.
type SessionSource interface {
	Snapshot() (chat.Snapshot, bool)
}

// ChatSource exposes the side chat buffer.
type ChatSource interface {
	Recent() []chat.ChatMessage
}

// Handler 直播状态的HTTP处理器
type Handler struct {
	session SessionSource
	chat    ChatSource
}

// New 创建处理器
func New(session SessionSource, chat ChatSource) *Handler {
	return &Handler{session: session, chat: chat}
}

// RegisterRoutes 注册会话与弹幕相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Get("/chat", h.handleGetChat)
}

// handleGetSession 返回当前配对及消息记录
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.session.Snapshot()
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "no match is running")
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleGetChat 返回最近的弹幕
func (h *Handler) handleGetChat(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chat.Recent())
}
