// Package session runs the never-ending matchmaking loop: pick a pair, let
// them talk, watch for degeneracy and audience skips, repeat.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/zhouzirui/kawaii-watch/backend/internal/analysis/degeneracy"
	"github.com/zhouzirui/kawaii-watch/backend/internal/config"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/conversation"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/vote"
)

const (
	skipReason    = "the audience voted to skip, finding a new match..."
	backendReason = "something went wrong, finding a new match..."
)

// Hub is the observer fan-out the orchestrator publishes to.
type Hub interface {
	Broadcast(p packet.Outbound)
	Commit(apply func(), p packet.Outbound)
	Count() int
	IdleFor() time.Duration
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Hub     Hub
	Roster  persona.Store
	Backend conversation.Completer
	// Rand drives pair, opener and starter selection. Nil means a
	// time-seeded source.
	Rand *rand.Rand
}

// Config tunes the match loop.
type Config struct {
	HistoryLimit    int
	IdleTimeout     time.Duration
	IdlePoll        time.Duration
	RestartThrottle time.Duration
	RestartBackoff  time.Duration
	Checkpoints     []int
	CheckpointEvery int
	VoteDuration    time.Duration
	Temperature     float64
	Engine          conversation.Config
	Detector        degeneracy.Config
}

// DefaultConfig returns the production loop settings.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:    300,
		IdleTimeout:     10 * time.Second,
		IdlePoll:        100 * time.Millisecond,
		RestartThrottle: 100 * time.Millisecond,
		RestartBackoff:  time.Second,
		Checkpoints:     []int{15, 35, 50, 80},
		CheckpointEvery: 60,
		VoteDuration:    15 * time.Second,
		Temperature:     config.DefaultTemperature,
		Engine:          conversation.DefaultConfig(),
		Detector:        degeneracy.DefaultConfig(),
	}
}

// NewConfig maps the environment settings onto a loop configuration.
func NewConfig(s config.SessionConfig, temperature float64) Config {
	return Config{
		HistoryLimit:    s.HistoryLimit,
		IdleTimeout:     s.IdleTimeout,
		IdlePoll:        s.IdlePoll,
		RestartThrottle: s.RestartThrottle,
		RestartBackoff:  s.RestartBackoff,
		Checkpoints:     slices.Clone(s.Checkpoints),
		CheckpointEvery: s.CheckpointEvery,
		VoteDuration:    s.VoteDuration,
		Temperature:     temperature,
		Engine: conversation.Config{
			Window:   s.EngineWindow,
			WPM:      s.EngineWPM,
			MinDelay: s.EngineMinDelay,
			MaxDelay: s.EngineMaxDelay,
			MaxEmoji: s.EngineMaxEmoji,
		},
		Detector: degeneracy.Config{
			MaxWords:         s.DetectMaxWords,
			MaxEmoji:         s.DetectMaxEmoji,
			LoopWindow:       s.DetectLoopWindow,
			LoopThreshold:    s.DetectLoopThreshold,
			SelfWindow:       s.DetectSelfWindow,
			SelfThreshold:    s.DetectSelfThreshold,
			MaxLatency:       s.DetectMaxLatency,
			LanguageWindow:   s.DetectLanguageWindow,
			MaxForeignRatio:  s.DetectForeignRatio,
			MinBigramDensity: s.DetectMinBigramDensity,
		},
	}
}

// Orchestrator owns the live match. Only the Run goroutine mutates it;
// readers go through the published snapshot.
type Orchestrator struct {
	hub    Hub
	roster persona.Store
	engine *conversation.Engine
	cfg    Config
	rng    *rand.Rand
	now    func() time.Time

	// history is reused across matches and only touched by Run.
	history *chat.Ring[chat.Message]

	snapshot atomic.Pointer[chat.Snapshot]
	vote     atomic.Pointer[vote.Vote]
}

// New creates an orchestrator. Nothing happens until Run is called.
func New(d Deps, cfg Config) *Orchestrator {
	rng := d.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = DefaultConfig().IdlePoll
	}
	return &Orchestrator{
		hub:     d.Hub,
		roster:  d.Roster,
		engine:  conversation.New(d.Backend, cfg.Engine),
		cfg:     cfg,
		rng:     rng,
		now:     time.Now,
		history: chat.NewRing[chat.Message](cfg.HistoryLimit),
	}
}

// Run loops over matches until ctx is cancelled. It only returns an error
// when no match can ever start.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if o.idle() {
			if err := sleep(ctx, o.cfg.IdlePoll); err != nil {
				return nil
			}
			continue
		}

		started := o.now()
		err := o.runMatch(ctx)
		if errors.Is(err, persona.ErrEmptyRoster) {
			return err
		}
		if err != nil {
			log.Printf("[session] match aborted: %v", err)
		}

		// Only matches that die almost immediately pay the backoff.
		if lasted := o.now().Sub(started); lasted < o.cfg.RestartThrottle {
			log.Printf("[session] match lasted %s, backing off %s", lasted, o.cfg.RestartBackoff)
			if err := sleep(ctx, o.cfg.RestartBackoff); err != nil {
				return nil
			}
		}
	}
}

// Snapshot returns the current match, if one has started.
func (o *Orchestrator) Snapshot() (chat.Snapshot, bool) {
	s := o.snapshot.Load()
	if s == nil {
		return chat.Snapshot{}, false
	}
	return *s, true
}

// Choose forwards an observer's ballot to the running vote, if any.
func (o *Orchestrator) Choose(connID, choice string) {
	if v := o.vote.Load(); v != nil {
		v.Choose(connID, choice)
	}
}

// Greet builds the packets a new observer needs: the current match, roster
// sizes and the running vote.
func (o *Orchestrator) Greet() []packet.Outbound {
	out := make([]packet.Outbound, 0, 4)
	if s, ok := o.Snapshot(); ok {
		out = append(out, packet.Init{Girl: s.Girl, Boy: s.Boy, History: s.History})
	}
	out = append(out, packet.Stats(o.roster.Stats()))
	if v := o.vote.Load(); v != nil {
		if start, progress, ok := v.Snapshot(); ok {
			out = append(out, start, progress)
		}
	}
	return out
}

func (o *Orchestrator) runMatch(parent context.Context) error {
	girl, boy, err := o.roster.RandomPair(o.rng)
	if err != nil {
		return err
	}
	match := conversation.Match{Girl: girl, Boy: boy, Opener: persona.Girl, Temperature: o.cfg.Temperature}
	opener := girl
	if o.rng.IntN(2) == 1 {
		match.Opener, opener = persona.Boy, boy
	}
	match.Starter = o.roster.RandomStarter(o.rng, opener.Name)

	o.stopVote()
	history := o.history
	history.Reset()
	detector := degeneracy.New(o.cfg.Detector)

	o.hub.Commit(func() {
		o.snapshot.Store(&chat.Snapshot{Girl: girl, Boy: boy, History: []chat.Message{}})
	}, packet.Init{Girl: girl, Boy: boy, History: []chat.Message{}})
	o.hub.Broadcast(packet.Notification{
		Text:  fmt.Sprintf("%s and %s matched! say hi in chat", girl.Name, boy.Name),
		Color: packet.Green,
	})
	log.Printf("[session] match started girl=%s boy=%s opener=%s", girl.Name, boy.Name, opener.Name)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	out := make(chan chat.Message)
	engineDone := make(chan error, 1)
	go func() { engineDone <- o.engine.Run(ctx, match, out) }()

	// end cancels the engine and waits for it, so a new match never overlaps
	// an outstanding backend call.
	end := func(notice *packet.Notification) error {
		cancel()
		o.stopVote()
		if notice != nil {
			o.hub.Broadcast(*notice)
		}
		<-engineDone
		return nil
	}

	idle := time.NewTicker(o.cfg.IdlePoll)
	defer idle.Stop()

	var (
		total    int
		lastAt   time.Time
		voteDone <-chan vote.Result
	)
	for {
		select {
		case <-parent.Done():
			return end(nil)

		case msg := <-out:
			now := o.now()
			var latency time.Duration
			if !lastAt.IsZero() {
				latency = now.Sub(lastAt)
			}
			lastAt = now

			prior := history.Items()
			o.hub.Commit(func() {
				history.Push(msg)
				o.snapshot.Store(&chat.Snapshot{Girl: girl, Boy: boy, History: history.Items()})
			}, packet.Message(msg))
			total++

			if verdict := detector.Score(msg, prior, latency); verdict.Stop {
				log.Printf("[session] stop signal=%s after %d messages", verdict.Signal, total)
				return end(&packet.Notification{Text: verdict.Reason, Color: verdict.Color})
			}

			if voteDone == nil && o.isCheckpoint(total) {
				v := vote.New(o.hub, vote.SkipPoll(o.cfg.VoteDuration))
				o.vote.Store(v)
				v.Open()
				voteDone = v.Done()
			}

		case res := <-voteDone:
			voteDone = nil
			o.vote.Store(nil)
			if !res.Prefers(vote.ChoiceContinue, vote.ChoiceSkip) {
				log.Printf("[session] skipped by vote tally=%v", res.Tally)
				return end(&packet.Notification{Text: skipReason, Color: packet.Pink})
			}

		case err := <-engineDone:
			o.stopVote()
			if parent.Err() != nil {
				return nil
			}
			o.hub.Broadcast(packet.Notification{Text: backendReason, Color: packet.Red})
			return fmt.Errorf("conversation engine: %w", err)

		case <-idle.C:
			if o.idle() {
				log.Printf("[session] no observers for %s, pausing", o.cfg.IdleTimeout)
				return end(nil)
			}
		}
	}
}

func (o *Orchestrator) isCheckpoint(n int) bool {
	if slices.Contains(o.cfg.Checkpoints, n) {
		return true
	}
	last := 0
	if len(o.cfg.Checkpoints) > 0 {
		last = slices.Max(o.cfg.Checkpoints)
	}
	return o.cfg.CheckpointEvery > 0 && n > last && n%o.cfg.CheckpointEvery == 0
}

func (o *Orchestrator) idle() bool {
	return o.hub.Count() == 0 && o.hub.IdleFor() >= o.cfg.IdleTimeout
}

func (o *Orchestrator) stopVote() {
	if v := o.vote.Swap(nil); v != nil {
		v.Stop()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
