package connector

import (
	"context"
	"log/slog"
)

// LogConnector is a Connector that only logs. It backs deployments
// where warden runs detection and state tracking behind the HTTP API
// and a separate adapter performs the platform actions.
type LogConnector struct {
	logger *slog.Logger
}

var _ Connector = (*LogConnector)(nil)

func NewLogConnector(logger *slog.Logger) *LogConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConnector{logger: logger}
}

func (l *LogConnector) SendMessage(ctx context.Context, conversationID, text string) error {
	l.logger.Info("send message", "conversation", conversationID, "text", text)
	return nil
}

func (l *LogConnector) RemoveParticipant(ctx context.Context, conversationID, participantID string) error {
	l.logger.Info("remove participant", "conversation", conversationID, "participant", participantID)
	return nil
}

func (l *LogConnector) AddParticipant(ctx context.Context, conversationID, participantID string) error {
	l.logger.Info("add participant", "conversation", conversationID, "participant", participantID)
	return nil
}

func (l *LogConnector) SetRole(ctx context.Context, conversationID, participantID, role string) error {
	l.logger.Info("set role", "conversation", conversationID, "participant", participantID, "role", role)
	return nil
}

func (l *LogConnector) ListConversations(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (l *LogConnector) GetConversationRoster(ctx context.Context, conversationID string) ([]Participant, error) {
	return nil, nil
}

func (l *LogConnector) GetHistory(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return nil, nil
}
