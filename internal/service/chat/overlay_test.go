package chat

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modelchat "github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
)

type recorder struct {
	mu      sync.Mutex
	packets []packet.Outbound
}

func (r *recorder) Broadcast(p packet.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, p)
}

func (r *recorder) Commit(apply func(), p packet.Outbound) {
	apply()
	r.Broadcast(p)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestOverlay(b Broadcaster) (*Overlay, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	o := NewOverlay(b, DefaultConfig())
	o.now = clock.Now
	return o, clock
}

func TestPostBroadcasts(t *testing.T) {
	rec := &recorder{}
	o, clock := newTestOverlay(rec)

	require.NoError(t, o.Post("c1", "Chloe", "  she is so down bad  "))

	require.Len(t, rec.packets, 1)
	cb := rec.packets[0].(packet.ChatBroadcast)
	require.Len(t, cb, 1)
	assert.Equal(t, modelchat.ChatMessage{
		Username:  "Chloe",
		Message:   "she is so down bad",
		Timestamp: clock.Now().UnixMilli(),
	}, cb[0])
}

func TestPostRejectsInvalid(t *testing.T) {
	rec := &recorder{}
	o, _ := newTestOverlay(rec)

	assert.ErrorIs(t, o.Post("c1", "Chloe", ""), ErrEmptyMessage)
	assert.ErrorIs(t, o.Post("c1", "Chloe", " \t\n "), ErrEmptyMessage)
	assert.ErrorIs(t, o.Post("c1", "Chloe", strings.Repeat("a", 176)), ErrMessageTooLong)
	assert.NoError(t, o.Post("c1", "Chloe", strings.Repeat("a", 175)))
	assert.Len(t, rec.packets, 1)
}

func TestPostCooldown(t *testing.T) {
	rec := &recorder{}
	o, clock := newTestOverlay(rec)

	require.NoError(t, o.Post("c1", "Chloe", "first"))
	clock.Advance(999 * time.Millisecond)
	assert.ErrorIs(t, o.Post("c1", "Chloe", "too fast"), ErrRateLimited)
	assert.NoError(t, o.Post("c2", "Ethan", "other connection"))

	clock.Advance(time.Millisecond)
	assert.NoError(t, o.Post("c1", "Chloe", "second"))

	var texts []string
	for _, m := range o.Recent() {
		texts = append(texts, m.Message)
	}
	assert.Equal(t, []string{"first", "other connection", "second"}, texts)
}

func TestForgetClearsCooldown(t *testing.T) {
	o, _ := newTestOverlay(&recorder{})

	require.NoError(t, o.Post("c1", "Chloe", "hi"))
	o.Forget("c1")
	assert.NoError(t, o.Post("c1", "Chloe", "back again"))
}

func TestRecentIsBounded(t *testing.T) {
	o, clock := newTestOverlay(&recorder{})

	for i := range 30 {
		require.NoError(t, o.Post("c1", "Chloe", fmt.Sprintf("line %d", i)))
		clock.Advance(time.Second)
	}

	recent := o.Recent()
	require.Len(t, recent, 25)
	assert.Equal(t, "line 5", recent[0].Message)
	assert.Equal(t, "line 29", recent[24].Message)
}

// joinOnCommit registers an observer at the moment a post is handed to the
// hub, the latest point a join can race the post.
type joinOnCommit struct {
	hub    *broadcast.Hub
	joiner *broadcast.Client
}

func (j *joinOnCommit) Commit(apply func(), p packet.Outbound) {
	j.joiner = j.hub.Register()
	j.hub.Commit(apply, p)
}

func drain(c *broadcast.Client) []string {
	var frames []string
	for {
		select {
		case raw := <-c.Frames():
			frames = append(frames, string(raw))
		default:
			return frames
		}
	}
}

func TestJoinerSeesPostOnce(t *testing.T) {
	hub := broadcast.NewHub([]string{"Emily"})
	b := &joinOnCommit{hub: hub}
	o, _ := newTestOverlay(b)
	hub.AddGreeter(o)

	require.NoError(t, o.Post("c1", "Chloe", "hello"))

	frames := drain(b.joiner)
	require.NotEmpty(t, frames)
	seen := 0
	for _, f := range frames {
		seen += strings.Count(f, `"message":"hello"`)
	}
	assert.Equal(t, 1, seen, "frames: %v", frames)

	late := hub.Register()
	backlog := drain(late)
	require.Len(t, backlog, 1)
	assert.Contains(t, backlog[0], `"message":"hello"`)
}
