package chat

import (
	"time"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
)

// Message is one emitted turn of the persona conversation.
type Message struct {
	Content    string         `json:"content"`
	SenderName string         `json:"senderName"`
	Role       persona.Gender `json:"role"`
}

// ChatMessage is one line of the observer side chat.
type ChatMessage struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// NewChatMessage stamps a chat line with the given time in epoch milliseconds.
func NewChatMessage(username, message string, at time.Time) ChatMessage {
	return ChatMessage{Username: username, Message: message, Timestamp: at.UnixMilli()}
}

// Snapshot is a point-in-time copy of the live match handed to readers.
type Snapshot struct {
	Girl    persona.Persona `json:"girl"`
	Boy     persona.Persona `json:"boy"`
	History []Message       `json:"history"`
}

// TurnRole labels a transcript turn from the point of view of the persona
// about to speak.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is one transcript entry sent to the completion backend.
type Turn struct {
	Role    TurnRole
	Content string
}
