package persona

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// NameToken is replaced by the opener's name in starter templates.
const NameToken = "{NAME}"

// ErrEmptyRoster is returned when one side of the roster has no personas.
var ErrEmptyRoster = errors.New("persona roster is empty")

// Roster is the static set of personas and opening lines a match is drawn from.
type Roster struct {
	Girls    []Persona `json:"girls"`
	Boys     []Persona `json:"boys"`
	Starters []string  `json:"starters"`
}

// Stats summarises roster sizes for the stats packet.
type Stats struct {
	Girls    int `json:"girls"`
	Boys     int `json:"boys"`
	Starters int `json:"starters"`
}

// Store exposes the roster to the orchestrator and HTTP handlers.
type Store interface {
	Roster() Roster
	Stats() Stats
	RandomPair(rng *rand.Rand) (girl Persona, boy Persona, err error)
	RandomStarter(rng *rand.Rand, name string) string
	Names() []string
}

// MemoryStore implements Store with an in-memory copy of the roster.
type MemoryStore struct {
	roster Roster
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied roster.
func NewMemoryStore(r Roster) *MemoryStore {
	return &MemoryStore{roster: Roster{
		Girls:    append([]Persona(nil), r.Girls...),
		Boys:     append([]Persona(nil), r.Boys...),
		Starters: append([]string(nil), r.Starters...),
	}}
}

// Roster returns a copy of the stored roster.
func (s *MemoryStore) Roster() Roster {
	return Roster{
		Girls:    append([]Persona(nil), s.roster.Girls...),
		Boys:     append([]Persona(nil), s.roster.Boys...),
		Starters: append([]string(nil), s.roster.Starters...),
	}
}

// Stats reports how many personas and starters are available.
func (s *MemoryStore) Stats() Stats {
	return Stats{
		Girls:    len(s.roster.Girls),
		Boys:     len(s.roster.Boys),
		Starters: len(s.roster.Starters),
	}
}

// RandomPair draws one girl and one boy uniformly at random.
func (s *MemoryStore) RandomPair(rng *rand.Rand) (Persona, Persona, error) {
	if len(s.roster.Girls) == 0 || len(s.roster.Boys) == 0 {
		return Persona{}, Persona{}, ErrEmptyRoster
	}
	girl := s.roster.Girls[rng.IntN(len(s.roster.Girls))]
	boy := s.roster.Boys[rng.IntN(len(s.roster.Boys))]
	return girl, boy, nil
}

// RandomStarter picks an opening line and substitutes the opener's name.
func (s *MemoryStore) RandomStarter(rng *rand.Rand, name string) string {
	if len(s.roster.Starters) == 0 {
		return "hey"
	}
	starter := s.roster.Starters[rng.IntN(len(s.roster.Starters))]
	return strings.ReplaceAll(starter, NameToken, name)
}

// Names lists every persona name, used as the pseudonym pool for observers.
func (s *MemoryStore) Names() []string {
	names := make([]string, 0, len(s.roster.Girls)+len(s.roster.Boys))
	for _, p := range s.roster.Girls {
		names = append(names, p.Name)
	}
	for _, p := range s.roster.Boys {
		names = append(names, p.Name)
	}
	return names
}
