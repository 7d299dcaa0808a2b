// Package degeneracy decides when a generated conversation has gone off the
// rails and should be abandoned.
package degeneracy

import (
	"math"
	"strings"
	"time"

	"github.com/zhouzirui/kawaii-watch/backend/internal/analysis/language"
	"github.com/zhouzirui/kawaii-watch/backend/internal/analysis/similarity"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/packet"
)

// Signal names the heuristic that stopped a match.
type Signal string

const (
	SignalNone       Signal = ""
	SignalVerbosity  Signal = "verbosity"
	SignalEmoji      Signal = "emoji"
	SignalLoop       Signal = "loop"
	SignalSelfRepeat Signal = "self-repeat"
	SignalLatency    Signal = "latency"
	SignalLanguage   Signal = "language"
)

// Config holds every threshold. The values are hand tuned; keep them
// configurable rather than deriving new ones.
type Config struct {
	MaxWords         int
	MaxEmoji         int
	LoopWindow       int
	LoopThreshold    float64
	SelfWindow       int
	SelfThreshold    float64
	MaxLatency       time.Duration
	LanguageWindow   int
	MaxForeignRatio  float64
	MinBigramDensity float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MaxWords:         80,
		MaxEmoji:         20,
		LoopWindow:       6,
		LoopThreshold:    0.7,
		SelfWindow:       3,
		SelfThreshold:    0.8,
		MaxLatency:       15 * time.Second,
		LanguageWindow:   8,
		MaxForeignRatio:  0.05,
		MinBigramDensity: 0.05,
	}
}

// Verdict is the outcome of scoring one message.
type Verdict struct {
	Stop   bool
	Signal Signal
	Reason string
	Color  packet.Color
}

var reasons = map[Signal]Verdict{
	SignalVerbosity:  {Reason: "too much yapping, finding a new match...", Color: packet.Yellow},
	SignalEmoji:      {Reason: "emoji overload detected, finding a new match...", Color: packet.Pink},
	SignalLoop:       {Reason: "they got stuck in a response loop, finding a new match...", Color: packet.Yellow},
	SignalSelfRepeat: {Reason: "someone keeps repeating themselves, finding a new match...", Color: packet.Yellow},
	SignalLatency:    {Reason: "the conversation stalled, finding a new match...", Color: packet.Red},
	SignalLanguage:   {Reason: "they stopped speaking english, finding a new match...", Color: packet.Red},
}

func stop(s Signal) Verdict {
	v := reasons[s]
	v.Stop = true
	v.Signal = s
	return v
}

// Detector keeps the rolling statistics of one match. Create a new one per
// match; it is not safe for concurrent use.
type Detector struct {
	cfg        Config
	crossSims  []float64
	selfSims   map[string][]float64
	latencyAvg float64
}

// New returns a detector with empty rolling windows.
func New(cfg Config) *Detector {
	return &Detector{
		cfg:        cfg,
		selfSims:   make(map[string][]float64),
		latencyAvg: math.Inf(1),
	}
}

// Score evaluates msg against the history that preceded it. latency is the
// time elapsed since the previous message and is ignored for the first
// message of a match.
func (d *Detector) Score(msg chat.Message, history []chat.Message, latency time.Duration) Verdict {
	crossAvg, crossFull := d.observeCross(msg, history)
	selfAvg, selfFull := d.observeSelf(msg, history)
	if len(history) > 0 {
		d.observeLatency(latency)
	}

	switch {
	case language.WordCount(msg.Content) > d.cfg.MaxWords:
		return stop(SignalVerbosity)
	case language.CountEmoji(msg.Content) > d.cfg.MaxEmoji:
		return stop(SignalEmoji)
	case crossFull && crossAvg > d.cfg.LoopThreshold:
		return stop(SignalLoop)
	case selfFull && selfAvg > d.cfg.SelfThreshold:
		return stop(SignalSelfRepeat)
	case !math.IsInf(d.latencyAvg, 1) && d.latencyAvg >= float64(d.cfg.MaxLatency.Milliseconds()):
		return stop(SignalLatency)
	case !d.plausibleLanguage(msg, history):
		return stop(SignalLanguage)
	}
	return Verdict{}
}

// LatencyAverage exposes the recursive latency average in milliseconds.
func (d *Detector) LatencyAverage() float64 {
	return d.latencyAvg
}

func (d *Detector) observeCross(msg chat.Message, history []chat.Message) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	prev := history[len(history)-1]
	d.crossSims = pushWindow(d.crossSims, similarity.Ratio(msg.Content, prev.Content), d.cfg.LoopWindow)
	return average(d.crossSims), len(d.crossSims) >= d.cfg.LoopWindow
}

func (d *Detector) observeSelf(msg chat.Message, history []chat.Message) (float64, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SenderName != msg.SenderName {
			continue
		}
		window := pushWindow(d.selfSims[msg.SenderName], similarity.Ratio(msg.Content, history[i].Content), d.cfg.SelfWindow)
		d.selfSims[msg.SenderName] = window
		return average(window), len(window) >= d.cfg.SelfWindow
	}
	return 0, false
}

func (d *Detector) observeLatency(latency time.Duration) {
	ms := float64(latency.Milliseconds())
	if math.IsInf(d.latencyAvg, 1) {
		d.latencyAvg = ms
		return
	}
	d.latencyAvg = (d.latencyAvg + ms) / 2
}

func (d *Detector) plausibleLanguage(msg chat.Message, history []chat.Message) bool {
	if d.cfg.LanguageWindow <= 0 || len(history)+1 < d.cfg.LanguageWindow {
		return true
	}

	tail := history[len(history)-(d.cfg.LanguageWindow-1):]
	parts := make([]string, 0, d.cfg.LanguageWindow)
	for _, m := range tail {
		parts = append(parts, m.Content)
	}
	parts = append(parts, msg.Content)

	ok, _ := language.Check(strings.Join(parts, " "), d.cfg.MaxForeignRatio, d.cfg.MinBigramDensity)
	return ok
}

func pushWindow(window []float64, v float64, size int) []float64 {
	window = append(window, v)
	if size > 0 && len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
