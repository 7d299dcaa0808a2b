// Package conversation drives the alternating-turn dialogue of one match.
package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/kawaii-watch/backend/internal/analysis/language"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
)

// Completer produces the next line for the persona owning system. turns are
// labelled from that persona's point of view.
type Completer interface {
	Complete(ctx context.Context, system string, turns []chat.Turn, temperature float64) (string, error)
}

// Config tunes transcript size and simulated typing.
type Config struct {
	Window   int
	WPM      int
	MinDelay time.Duration
	MaxDelay time.Duration
	MaxEmoji int
}

// DefaultConfig returns the production engine settings.
func DefaultConfig() Config {
	return Config{
		Window:   15,
		WPM:      300,
		MinDelay: 800 * time.Millisecond,
		MaxDelay: 2 * time.Second,
		MaxEmoji: 2,
	}
}

// Match describes the pair and opening line of one dialogue.
type Match struct {
	Girl        persona.Persona
	Boy         persona.Persona
	Opener      persona.Gender
	Starter     string
	Temperature float64
}

func (m Match) speakers() (first, second persona.Persona) {
	if m.Opener == persona.Boy {
		return m.Boy, m.Girl
	}
	return m.Girl, m.Boy
}

// Engine runs dialogues against a completion backend. It holds no state
// between runs and can be reused.
type Engine struct {
	backend Completer
	cfg     Config
	now     func() time.Time
}

// New creates an engine.
func New(backend Completer, cfg Config) *Engine {
	return &Engine{backend: backend, cfg: cfg, now: time.Now}
}

// Run emits the starter and then alternates turns until ctx is cancelled or
// the backend fails. Every message is delivered on out; Run never closes
// out. A completion that lands after cancellation is discarded.
func (e *Engine) Run(ctx context.Context, m Match, out chan<- chat.Message) error {
	opener, responder := m.speakers()

	if err := send(ctx, out, chat.Message{Content: m.Starter, SenderName: opener.Name, Role: opener.Gender}); err != nil {
		return err
	}

	transcript := []chat.Turn{{Role: chat.RoleUser, Content: m.Starter}}
	speaker, listener := responder, opener

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := e.now()
		// The in-flight call is allowed to finish; its result is dropped below.
		reply, err := e.backend.Complete(context.WithoutCancel(ctx), speaker.SystemPrompt, e.window(transcript), m.Temperature)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("completion for %s: %w", speaker.Name, err)
		}

		content := e.clean(reply)
		transcript = append(transcript, chat.Turn{Role: chat.RoleAssistant, Content: content})
		transcript = e.trim(transcript)
		flipRoles(transcript)

		wait := TypingDelay(language.WordCount(content), e.cfg) - e.now().Sub(started)
		if err := sleep(ctx, wait); err != nil {
			return err
		}

		if err := send(ctx, out, chat.Message{Content: content, SenderName: speaker.Name, Role: speaker.Gender}); err != nil {
			return err
		}
		log.Printf("[engine] %s replied words=%d", speaker.Name, language.WordCount(content))

		speaker, listener = listener, speaker
	}
}

// TypingDelay converts a word count into a simulated typing time, clamped to
// the configured bounds.
func TypingDelay(words int, cfg Config) time.Duration {
	var d time.Duration
	if cfg.WPM > 0 {
		d = time.Duration(words) * time.Minute / time.Duration(cfg.WPM)
	}
	if d < cfg.MinDelay {
		d = cfg.MinDelay
	}
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}

func (e *Engine) clean(reply string) string {
	reply = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(reply)
	reply = strings.TrimSpace(reply)
	if e.cfg.MaxEmoji >= 0 {
		reply = strings.TrimSpace(language.CapEmoji(reply, e.cfg.MaxEmoji))
	}
	return reply
}

func (e *Engine) window(transcript []chat.Turn) []chat.Turn {
	if e.cfg.Window > 0 && len(transcript) > e.cfg.Window {
		transcript = transcript[len(transcript)-e.cfg.Window:]
	}
	return append([]chat.Turn(nil), transcript...)
}

func (e *Engine) trim(transcript []chat.Turn) []chat.Turn {
	if e.cfg.Window > 0 && len(transcript) > e.cfg.Window {
		return append(transcript[:0], transcript[len(transcript)-e.cfg.Window:]...)
	}
	return transcript
}

func flipRoles(turns []chat.Turn) {
	for i := range turns {
		if turns[i].Role == chat.RoleUser {
			turns[i].Role = chat.RoleAssistant
		} else {
			turns[i].Role = chat.RoleUser
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return ctx.Err()
}

func send(ctx context.Context, out chan<- chat.Message, msg chat.Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- msg:
		return nil
	}
}
