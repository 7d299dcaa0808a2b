// Package broadcast tracks connected observers and fans packets out to them.
package broadcast

import (
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
)

const sendBuffer = 256

// VoteHandler receives choice-vote packets.
type VoteHandler interface {
	Choose(connID, choice string)
}

// ChatHandler receives chat-in packets and disconnect notices.
type ChatHandler interface {
	HandleChat(connID, username, text string)
	Forget(connID string)
}

// Greeter contributes packets sent to a connection right after it joins.
type Greeter interface {
	Greet() []packet.Outbound
}

// Client is one registered observer. Transports drain Frames until Done is
// closed.
type Client struct {
	ID   string
	Name string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Frames yields encoded packets in broadcast order.
func (c *Client) Frames() <-chan []byte {
	return c.send
}

// Done is closed once the client is unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub is the set of connected observers.
type Hub struct {
	names []string
	now   func() time.Time

	mu        sync.RWMutex
	clients   map[string]*Client
	idleSince time.Time
	votes     VoteHandler
	chat      ChatHandler
	greeters  []Greeter
}

// NewHub creates an empty hub. names is the pseudonym pool handed out to
// observers.
func NewHub(names []string) *Hub {
	h := &Hub{
		names:   append([]string(nil), names...),
		now:     time.Now,
		clients: make(map[string]*Client),
	}
	h.idleSince = h.now()
	return h
}

// Attach wires the inbound routes. Either handler may be nil.
func (h *Hub) Attach(votes VoteHandler, chat ChatHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.votes = votes
	h.chat = chat
}

// AddGreeter appends g to the join sequence. Greeters run in the order they
// were added.
func (h *Hub) AddGreeter(g Greeter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.greeters = append(h.greeters, g)
}

// Register adds a new observer and queues its greeting.
func (h *Hub) Register() *Client {
	c := &Client{
		ID:   uuid.NewString(),
		Name: h.pseudonym(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, g := range h.greeters {
		for _, p := range g.Greet() {
			if frame, ok := encode(p); ok {
				c.enqueue(frame)
			}
		}
	}
	h.clients[c.ID] = c
	log.Printf("[hub] observer joined id=%s name=%s total=%d", c.ID, c.Name, len(h.clients))
	return c
}

// Unregister removes c and closes its Done channel. It is safe to call more
// than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	if ok && len(h.clients) == 0 {
		h.idleSince = h.now()
	}
	remaining := len(h.clients)
	chat := h.chat
	h.mu.Unlock()

	c.close()
	if !ok {
		return
	}
	if chat != nil {
		chat.Forget(c.ID)
	}
	log.Printf("[hub] observer left id=%s total=%d", c.ID, remaining)
}

// Broadcast sends p to every observer. Observers whose buffer is full miss
// the packet.
func (h *Hub) Broadcast(p packet.Outbound) {
	frame, ok := encode(p)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.fanout(frame)
}

// Commit runs apply and broadcasts p without any registration in between, so
// a joining observer sees either the state before apply and then p, or the
// state after apply without p.
func (h *Hub) Commit(apply func(), p packet.Outbound) {
	frame, ok := encode(p)

	h.mu.Lock()
	defer h.mu.Unlock()
	apply()
	if ok {
		h.fanout(frame)
	}
}

// HandleInbound decodes a client frame and routes it. Malformed and unknown
// frames are dropped.
func (h *Hub) HandleInbound(c *Client, raw []byte) {
	in, err := packet.DecodeInbound(raw)
	if err != nil {
		return
	}

	h.mu.RLock()
	votes, chat := h.votes, h.chat
	h.mu.RUnlock()

	switch p := in.(type) {
	case packet.ChoiceVote:
		if votes != nil {
			votes.Choose(c.ID, p.Choice)
		}
	case packet.ChatIn:
		if chat != nil {
			chat.HandleChat(c.ID, c.Name, p.Message)
		}
	}
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IdleFor reports how long the hub has had no observers. It is zero while
// anyone is connected.
func (h *Hub) IdleFor() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) > 0 {
		return 0
	}
	return h.now().Sub(h.idleSince)
}

// Close unregisters every observer.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

func (h *Hub) fanout(frame []byte) {
	for _, c := range h.clients {
		if !c.enqueue(frame) {
			log.Printf("[hub] drop frame for %s: buffer full", c.ID)
		}
	}
}

func (h *Hub) pseudonym() string {
	if len(h.names) == 0 {
		return "anon"
	}
	return h.names[rand.IntN(len(h.names))]
}

func encode(p packet.Outbound) ([]byte, bool) {
	frame, err := packet.Encode(p)
	if err != nil {
		log.Printf("[hub] encode %s failed: %v", p.Type(), err)
		return nil, false
	}
	return frame, true
}
