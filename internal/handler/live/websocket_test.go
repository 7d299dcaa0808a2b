package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
)

type greeter struct{}

func (greeter) Greet() []packet.Outbound {
	return []packet.Outbound{packet.Stats{Girls: 4, Boys: 4, Starters: 6}}
}

type routes struct {
	chats chan string
	votes chan string
}

func (r *routes) Choose(connID, choice string) { r.votes <- choice }

func (r *routes) HandleChat(connID, username, text string) { r.chats <- username + ":" + text }

func (r *routes) Forget(string) {}

func setupServer(t *testing.T, origins []string) (*httptest.Server, *broadcast.Hub, *routes) {
	t.Helper()
	hub := broadcast.NewHub([]string{"Emily"})
	rt := &routes{chats: make(chan string, 4), votes: make(chan string, 4)}
	hub.Attach(rt, rt)
	hub.AddGreeter(greeter{})

	r := chi.NewRouter()
	NewWebSocketHandler(hub, origins).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, rt
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) (packet.Type, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Type packet.Type     `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read err: %v", err)
	}
	return env.Type, env.Data
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketGreetsAndStreams(t *testing.T) {
	srv, hub, _ := setupServer(t, nil)
	conn := dial(t, srv)

	if typ, _ := readType(t, conn); typ != packet.TypeStats {
		t.Fatalf("expected stats greeting, got %s", typ)
	}

	waitFor(t, func() bool { return hub.Count() == 1 })
	hub.Broadcast(packet.Notification{Text: "Vivian and Kevin matched!", Color: packet.Green})

	typ, data := readType(t, conn)
	if typ != packet.TypeNotification {
		t.Fatalf("expected notification, got %s", typ)
	}
	var n packet.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if n.Color != packet.Green {
		t.Fatalf("unexpected color %s", n.Color)
	}
}

func TestWebSocketRoutesInbound(t *testing.T) {
	srv, _, rt := setupServer(t, nil)
	conn := dial(t, srv)
	readType(t, conn)

	frames := []string{
		`{"type":"chat-in","data":{"message":"she is so real for that"}}`,
		`{"type":"whatever","data":{}}`,
		`{"type":"choice-vote","data":{"choice":"continue"}}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("write err: %v", err)
		}
	}

	select {
	case got := <-rt.chats:
		if got != "Emily:she is so real for that" {
			t.Fatalf("unexpected chat %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chat not routed")
	}
	select {
	case got := <-rt.votes:
		if got != "continue" {
			t.Fatalf("unexpected vote %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("vote not routed")
	}
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	srv, hub, _ := setupServer(t, nil)
	conn := dial(t, srv)
	readType(t, conn)
	waitFor(t, func() bool { return hub.Count() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Count() == 0 })
}

func TestWebSocketHubCloseDisconnects(t *testing.T) {
	srv, hub, _ := setupServer(t, nil)
	conn := dial(t, srv)
	readType(t, conn)
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv, _, _ := setupServer(t, []string{"https://kawaii.watch"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	header := map[string][]string{"Origin": {"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected handshake to fail for foreign origin")
	}
}
