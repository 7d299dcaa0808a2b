package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/zhouzirui/kawaii-watch/backend/internal/analysis/degeneracy"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/conversation"
)

type playOptions struct {
	Girl        string
	Boy         string
	Opener      string
	Messages    int
	Temperature float64
	KeepGoing   bool
	Fast        bool
	Engine      conversation.Config
	Detector    degeneracy.Config
	Rand        *rand.Rand
}

// play runs a single match outside the live loop and prints every message
// next to the detector's verdict.
func play(ctx context.Context, w io.Writer, store persona.Store, backend conversation.Completer, opts playOptions) error {
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	girl, boy, err := pickPair(store, rng, opts.Girl, opts.Boy)
	if err != nil {
		return err
	}
	opener, err := pickOpener(rng, opts.Opener)
	if err != nil {
		return err
	}
	openerName := girl.Name
	if opener == persona.Boy {
		openerName = boy.Name
	}

	engineCfg := opts.Engine
	if opts.Fast {
		engineCfg.WPM, engineCfg.MinDelay, engineCfg.MaxDelay = 0, 0, 0
	}
	match := conversation.Match{
		Girl:        girl,
		Boy:         boy,
		Opener:      opener,
		Starter:     store.RandomStarter(rng, openerName),
		Temperature: opts.Temperature,
	}

	fmt.Fprintf(w, "%s (%s) x %s (%s), %s opens\n\n", girl.Name, girl.University, boy.Name, boy.University, openerName)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan chat.Message)
	done := make(chan error, 1)
	go func() {
		done <- conversation.New(backend, engineCfg).Run(ctx, match, out)
	}()

	detector := degeneracy.New(opts.Detector)
	var history []chat.Message
	last := time.Now()
	stops := 0

	for n := 1; n <= opts.Messages; n++ {
		var msg chat.Message
		select {
		case msg = <-out:
		case err := <-done:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("match ended after %d messages: %w", len(history), err)
		}

		now := time.Now()
		verdict := detector.Score(msg, history, now.Sub(last))
		last = now
		history = append(history, msg)

		fmt.Fprintf(w, "%3d %-8s %s\n", n, msg.SenderName+":", msg.Content)
		if verdict.Stop {
			stops++
			fmt.Fprintf(w, "    !! %s: %s\n", verdict.Signal, verdict.Reason)
			if !opts.KeepGoing {
				break
			}
		}
	}

	cancel()
	<-done
	fmt.Fprintf(w, "\n%d messages, %d stop verdicts\n", len(history), stops)
	return nil
}

func pickPair(store persona.Store, rng *rand.Rand, girlName, boyName string) (persona.Persona, persona.Persona, error) {
	girl, boy, err := store.RandomPair(rng)
	if err != nil {
		return girl, boy, err
	}
	roster := store.Roster()
	if girlName != "" {
		if girl, err = findPersona(roster.Girls, girlName); err != nil {
			return girl, boy, err
		}
	}
	if boyName != "" {
		if boy, err = findPersona(roster.Boys, boyName); err != nil {
			return girl, boy, err
		}
	}
	return girl, boy, nil
}

func findPersona(group []persona.Persona, name string) (persona.Persona, error) {
	for _, p := range group {
		if p.Name == name {
			return p, nil
		}
	}
	return persona.Persona{}, fmt.Errorf("unknown persona %q", name)
}

func pickOpener(rng *rand.Rand, raw string) (persona.Gender, error) {
	switch persona.Gender(raw) {
	case "":
		if rng.IntN(2) == 0 {
			return persona.Girl, nil
		}
		return persona.Boy, nil
	case persona.Girl, persona.Boy:
		return persona.Gender(raw), nil
	default:
		return "", fmt.Errorf("opener must be girl or boy, got %q", raw)
	}
}
