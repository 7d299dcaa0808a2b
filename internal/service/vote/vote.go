// Package vote runs timed audience polls synchronised across observers.
package vote

import (
	"log"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
)

const (
	ChoiceContinue = "continue"
	ChoiceSkip     = "skip"
)

// Broadcaster fans packets out to every observer. Commit applies a state
// change and sends p with no observer joining in between.
type Broadcaster interface {
	Broadcast(p packet.Outbound)
	Commit(apply func(), p packet.Outbound)
}

// Poll describes one vote.
type Poll struct {
	Question string
	Choices  []string
	Duration time.Duration
}

// SkipPoll is the checkpoint poll asking whether to keep the current match.
func SkipPoll(d time.Duration) Poll {
	return Poll{
		Question: "keep watching this match?",
		Choices:  []string{ChoiceContinue, ChoiceSkip},
		Duration: d,
	}
}

// Result is the final tally of a poll. Every choice has an entry, zero
// included.
type Result struct {
	Choices []string
	Tally   map[string]int
}

// Count returns the number of ballots for choice.
func (r Result) Count(choice string) int {
	return r.Tally[choice]
}

// Prefers reports whether a collected at least as many ballots as b. Ties go
// to a.
func (r Result) Prefers(a, b string) bool {
	return r.Count(a) >= r.Count(b)
}

// Vote is one running poll. It resolves exactly once, either when its timer
// fires or when Stop is called.
type Vote struct {
	b    Broadcaster
	poll Poll
	now  func() time.Time

	// emit orders outgoing packets; mu guards state and is never held while
	// calling the broadcaster.
	emit     sync.Mutex
	mu       sync.Mutex
	ballots  map[string]string
	deadline time.Time
	opened   bool
	resolved bool
	timer    *time.Timer

	once sync.Once
	done chan Result
}

// Start creates a vote and opens it immediately.
func Start(b Broadcaster, p Poll) *Vote {
	v := New(b, p)
	v.Open()
	return v
}

// New prepares a vote without announcing it, so the owner can publish it
// before observers can answer.
func New(b Broadcaster, p Poll) *Vote {
	return &Vote{
		b:       b,
		poll:    Poll{Question: p.Question, Choices: slices.Clone(p.Choices), Duration: p.Duration},
		now:     time.Now,
		ballots: make(map[string]string),
		done:    make(chan Result, 1),
	}
}

// Open broadcasts start-vote and arms the timer. Calling it twice has no
// effect.
func (v *Vote) Open() {
	v.emit.Lock()
	defer v.emit.Unlock()

	v.mu.Lock()
	skip := v.opened || v.resolved
	v.mu.Unlock()
	if skip {
		return
	}

	v.b.Commit(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.opened = true
		v.deadline = v.now().Add(v.poll.Duration)
		v.timer = time.AfterFunc(v.poll.Duration, v.resolve)
	}, packet.StartVote{
		Question:   v.poll.Question,
		Choices:    slices.Clone(v.poll.Choices),
		DurationMs: v.poll.Duration.Milliseconds(),
	})
	log.Printf("[vote] started question=%q duration=%s", v.poll.Question, v.poll.Duration)
}

// Choose records connID's ballot, replacing any earlier one. It reports
// whether the tally changed; unknown choices and votes after resolution are
// ignored.
func (v *Vote) Choose(connID, choice string) bool {
	if !slices.Contains(v.poll.Choices, choice) {
		return false
	}

	v.emit.Lock()
	defer v.emit.Unlock()

	v.mu.Lock()
	if !v.opened || v.resolved || v.ballots[connID] == choice {
		v.mu.Unlock()
		return false
	}
	v.ballots[connID] = choice
	tally := v.tallyLocked()
	v.mu.Unlock()

	v.b.Broadcast(packet.ProgressVote{Result: tally})
	return true
}

// Stop resolves the poll early with the ballots collected so far.
func (v *Vote) Stop() {
	v.resolve()
}

// Done delivers the result once the poll resolves.
func (v *Vote) Done() <-chan Result {
	return v.done
}

// Snapshot returns the packets a late joiner needs to render the running
// poll. ok is false once the poll has resolved.
func (v *Vote) Snapshot() (packet.StartVote, packet.ProgressVote, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.opened || v.resolved {
		return packet.StartVote{}, packet.ProgressVote{}, false
	}

	remaining := max(v.deadline.Sub(v.now()), 0)
	sv := packet.StartVote{
		Question:   v.poll.Question,
		Choices:    slices.Clone(v.poll.Choices),
		DurationMs: remaining.Milliseconds(),
	}
	return sv, packet.ProgressVote{Result: v.tallyLocked()}, true
}

func (v *Vote) resolve() {
	v.once.Do(func() {
		v.emit.Lock()
		defer v.emit.Unlock()

		// Ballots cannot change while emit is held.
		v.mu.Lock()
		tally := v.tallyLocked()
		v.mu.Unlock()

		v.b.Commit(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			v.resolved = true
			if v.timer != nil {
				v.timer.Stop()
			}
		}, packet.EndVote{Result: maps.Clone(tally)})
		log.Printf("[vote] resolved question=%q tally=%v", v.poll.Question, tally)
		v.done <- Result{Choices: slices.Clone(v.poll.Choices), Tally: tally}
	})
}

func (v *Vote) tallyLocked() map[string]int {
	tally := make(map[string]int, len(v.poll.Choices))
	for _, c := range v.poll.Choices {
		tally[c] = 0
	}
	for _, c := range v.ballots {
		tally[c]++
	}
	return tally
}
