// Package packet defines the tagged JSON frames exchanged with observers.
//
// Every frame is an envelope {"type": ..., "data": ...}. Outbound and inbound
// frames are closed sets: only the types declared here satisfy Outbound or
// Inbound, so switches over them stay exhaustive.
package packet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
)

// Type is the envelope tag.
type Type string

const (
	TypeInit          Type = "init"
	TypeStats         Type = "stats"
	TypeMessage       Type = "message"
	TypeNotification  Type = "notification"
	TypeStartVote     Type = "start-vote"
	TypeProgressVote  Type = "progress-vote"
	TypeEndVote       Type = "end-vote"
	TypeChatBroadcast Type = "chat-broadcast"

	TypeChoiceVote Type = "choice-vote"
	TypeChatIn     Type = "chat-in"
)

// Color is the severity class of a notification.
type Color string

const (
	Green  Color = "green"
	Pink   Color = "pink"
	Yellow Color = "yellow"
	Red    Color = "red"
)

var (
	ErrUnknownType = errors.New("unknown packet type")
	ErrMalformed   = errors.New("malformed packet")
)

// Outbound is a frame the server sends to observers.
type Outbound interface {
	Type() Type
	outbound()
}

// Inbound is a frame an observer sends to the server.
type Inbound interface {
	Type() Type
	inbound()
}

type envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Init carries the current match so a client can render it from scratch.
type Init struct {
	Girl    persona.Persona `json:"girl"`
	Boy     persona.Persona `json:"boy"`
	History []chat.Message  `json:"history"`
}

// Stats carries the roster sizes.
type Stats persona.Stats

// Message carries one conversation turn.
type Message chat.Message

// Notification is a user-visible status line.
type Notification struct {
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

// StartVote opens a poll on every client.
type StartVote struct {
	Question   string   `json:"question"`
	Choices    []string `json:"choices"`
	DurationMs int64    `json:"durationMs"`
}

// ProgressVote carries the running tally.
type ProgressVote struct {
	Result map[string]int `json:"result"`
}

// EndVote carries the final tally.
type EndVote struct {
	Result map[string]int `json:"result"`
}

// ChatBroadcast carries side chat lines that clients append to their view.
type ChatBroadcast []chat.ChatMessage

// ChoiceVote is an observer's pick in the active poll.
type ChoiceVote struct {
	Choice string `json:"choice"`
}

// ChatIn is an observer's side chat submission.
type ChatIn struct {
	Message string `json:"message"`
}

func (Init) Type() Type          { return TypeInit }
func (Stats) Type() Type         { return TypeStats }
func (Message) Type() Type       { return TypeMessage }
func (Notification) Type() Type  { return TypeNotification }
func (StartVote) Type() Type     { return TypeStartVote }
func (ProgressVote) Type() Type  { return TypeProgressVote }
func (EndVote) Type() Type       { return TypeEndVote }
func (ChatBroadcast) Type() Type { return TypeChatBroadcast }
func (ChoiceVote) Type() Type    { return TypeChoiceVote }
func (ChatIn) Type() Type        { return TypeChatIn }

func (Init) outbound()          {}
func (Stats) outbound()         {}
func (Message) outbound()       {}
func (Notification) outbound()  {}
func (StartVote) outbound()     {}
func (ProgressVote) outbound()  {}
func (EndVote) outbound()       {}
func (ChatBroadcast) outbound() {}
func (ChoiceVote) inbound()     {}
func (ChatIn) inbound()         {}

// Encode serialises an outbound packet into its envelope.
func Encode(p Outbound) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", p.Type(), err)
	}
	return json.Marshal(envelope{Type: p.Type(), Data: data})
}

// DecodeInbound parses a client frame. Unknown tags yield ErrUnknownType and
// anything that does not fit the declared payload yields ErrMalformed.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeChoiceVote:
		var p ChoiceVote
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		if p.Choice == "" {
			return nil, fmt.Errorf("%w: empty choice", ErrMalformed)
		}
		return p, nil
	case TypeChatIn:
		var p ChatIn
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeData(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
