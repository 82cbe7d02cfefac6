package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository is the persistence collaborator. The engine loads a
// seed history at turn start and hands back the final appended messages at
// turn end; it never writes durable storage itself.
type ConversationRepository interface {
	// AddMessage appends a message to the conversation history.
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history for a conversation.
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation.
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation.
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// ResponseCache stores finished answers keyed by a fingerprint of the inbound
// message set. Implementations must be safe under concurrent requests for
// different conversations.
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (string, bool, error)
	Set(ctx context.Context, fingerprint, answer string, ttl time.Duration) error
}

// TurnInput is the public input for one user turn.
type TurnInput struct {
	ConversationID string         `json:"conversation_id"`
	Query          string         `json:"query"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
