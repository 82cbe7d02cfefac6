package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

// MessagesManager bridges the persistence collaborator: it seeds the turn
// with prior history and hands the final assistant message back at turn end.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, cfg model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         cfg.History.MaxTurns,
	}
}

// SeedHistory persists the inbound user message and returns the trimmed
// history to start the turn from.
func (m *MessagesManager) SeedHistory(ctx context.Context, conversationID, query string) ([]*schema.Message, error) {
	userMsg := schema.UserMessage(query)
	if err := m.conversationRepo.AddMessage(ctx, conversationID, userMsg); err != nil {
		return nil, err
	}

	history, err := m.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return trimTail(history.Messages, m.maxTurns), nil
}

// SaveResponse persists the finalized assistant answer.
func (m *MessagesManager) SaveResponse(ctx context.Context, conversationID, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return m.conversationRepo.AddMessage(ctx, conversationID, assistantMsg)
}

// trimTail keeps the most recent maxTurns messages, copying so callers never
// alias the repository's slice.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
