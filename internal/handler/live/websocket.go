package live

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/kawaii-watch/backend/internal/middleware"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	maxFrameSize = 4096
)

// Hub is the observer registry the socket attaches to.
type Hub interface {
	Register() *broadcast.Client
	Unregister(c *broadcast.Client)
	HandleInbound(c *broadcast.Client, raw []byte)
}

// WebSocketHandler 实时观战WebSocket处理器
type WebSocketHandler struct {
	hub      Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// handleWebSocket 处理观众连接：读循环在当前goroutine，写循环独占连接写入
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	client := h.hub.Register()
	defer h.hub.Unregister(client)
	defer conn.Close()

	log.Printf("[ws] observer connected id=%s remote=%s", client.ID, r.RemoteAddr)

	readDone := make(chan struct{})
	defer close(readDone)
	go h.writeLoop(conn, client, readDone)

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error id=%s: %v", client.ID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.hub.HandleInbound(client, data)
	}
}

// writeLoop 转发广播帧并定期发送ping
func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, client *broadcast.Client, readDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	// Closing here unblocks the reader when the hub drops the client.
	defer conn.Close()

	for {
		select {
		case <-readDone:
			return
		case <-client.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case frame := <-client.Frames():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("[ws] write failed id=%s: %v", client.ID, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
