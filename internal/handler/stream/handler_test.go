package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
)

type statsGreeter struct{}

func (statsGreeter) Greet() []packet.Outbound {
	return []packet.Outbound{packet.Stats{Girls: 1, Boys: 1, Starters: 1}}
}

func readData(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read err: %v", err)
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			return strings.TrimSpace(data)
		}
	}
}

func TestStreamForwardsPackets(t *testing.T) {
	hub := broadcast.NewHub(nil)
	hub.AddGreeter(statsGreeter{})

	r := chi.NewRouter()
	New(hub).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	if err != nil {
		t.Fatalf("NewRequest err: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request err: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}

	reader := bufio.NewReader(resp.Body)
	if got := readData(t, reader); got != `{"type":"stats","data":{"girls":1,"boys":1,"starters":1}}` {
		t.Fatalf("unexpected greeting %s", got)
	}

	hub.Broadcast(packet.Notification{Text: "hi", Color: packet.Yellow})
	if got := readData(t, reader); got != `{"type":"notification","data":{"text":"hi","color":"yellow"}}` {
		t.Fatalf("unexpected event %s", got)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("observer was not unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
