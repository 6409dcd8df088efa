// Package connector abstracts the chat platform. The engine only ever
// talks to this interface; a deployment supplies a real implementation
// for its platform, tests use the recording fake.
package connector

import (
	"context"
	"errors"
)

// ErrUnavailable indicates a transient platform failure. Engine
// operations treat it as non-fatal where the state change has already
// been persisted (reconciliation retries the side effect later).
var ErrUnavailable = errors.New("connector: platform unavailable")

// Participant is one member of a conversation roster.
type Participant struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"` // "member", "admin"
}

// Message is one inbound or historical chat message.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	Body           string `json:"body"`
	QuotedBody     string `json:"quotedBody,omitempty"`
	MentionsBot    bool   `json:"mentionsBot,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// Connector is the platform surface the engine drives.
type Connector interface {
	// SendMessage posts text into a conversation.
	SendMessage(ctx context.Context, conversationID, text string) error

	// RemoveParticipant kicks a participant from a conversation.
	RemoveParticipant(ctx context.Context, conversationID, participantID string) error

	// AddParticipant brings a participant (back) into a conversation.
	AddParticipant(ctx context.Context, conversationID, participantID string) error

	// SetRole promotes or demotes a participant.
	SetRole(ctx context.Context, conversationID, participantID, role string) error

	// ListConversations returns the IDs of conversations the engine is in.
	ListConversations(ctx context.Context) ([]string, error)

	// GetConversationRoster returns the current membership.
	GetConversationRoster(ctx context.Context, conversationID string) ([]Participant, error)

	// GetHistory returns up to limit recent messages, newest last.
	GetHistory(ctx context.Context, conversationID string, limit int) ([]Message, error)
}
