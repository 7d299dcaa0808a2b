// Package chat implements the observer side chat shown next to the match.
package chat

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
)

var (
	ErrEmptyMessage   = errors.New("chat message is empty")
	ErrMessageTooLong = errors.New("chat message is too long")
	ErrRateLimited    = errors.New("chat message sent too fast")
)

// Broadcaster applies a state change and fans p out to every observer with
// no observer joining in between.
type Broadcaster interface {
	Commit(apply func(), p packet.Outbound)
}

// Config bounds the side chat.
type Config struct {
	MaxLength    int
	Cooldown     time.Duration
	HistoryLimit int
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{MaxLength: 175, Cooldown: time.Second, HistoryLimit: 25}
}

// Overlay keeps the recent chat lines and the per-connection rate limit. It
// lives independently of matches.
type Overlay struct {
	b   Broadcaster
	cfg Config
	now func() time.Time

	mu       sync.RWMutex
	recent   *chat.Ring[chat.ChatMessage]
	lastPost map[string]time.Time
}

// NewOverlay creates an empty side chat.
func NewOverlay(b Broadcaster, cfg Config) *Overlay {
	return &Overlay{
		b:        b,
		cfg:      cfg,
		now:      time.Now,
		recent:   chat.NewRing[chat.ChatMessage](cfg.HistoryLimit),
		lastPost: make(map[string]time.Time),
	}
}

// Post validates text from connID and broadcasts it under username.
func (o *Overlay) Post(connID, username, text string) error {
	if utf8.RuneCountInString(text) > o.cfg.MaxLength {
		return ErrMessageTooLong
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	now := o.now()
	if last, ok := o.lastPost[connID]; ok && now.Sub(last) < o.cfg.Cooldown {
		o.mu.Unlock()
		return ErrRateLimited
	}
	o.lastPost[connID] = now
	o.mu.Unlock()

	msg := chat.NewChatMessage(username, text, now)
	o.b.Commit(func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.recent.Push(msg)
	}, packet.ChatBroadcast{msg})
	return nil
}

// Forget drops the rate-limit entry of a disconnected connection.
func (o *Overlay) Forget(connID string) {
	o.mu.Lock()
	delete(o.lastPost, connID)
	o.mu.Unlock()
}

// Recent returns the buffered chat lines, oldest first.
func (o *Overlay) Recent() []chat.ChatMessage {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.recent.Items()
}

// Greet sends the buffered chat lines to a joining observer.
func (o *Overlay) Greet() []packet.Outbound {
	return []packet.Outbound{packet.ChatBroadcast(o.Recent())}
}

// HandleChat is the hub entry point for chat-in packets. Rejections are
// logged and otherwise dropped.
func (o *Overlay) HandleChat(connID, username, text string) {
	if err := o.Post(connID, username, text); err != nil {
		log.Printf("[chat] drop message from %s: %v", connID, err)
	}
}
