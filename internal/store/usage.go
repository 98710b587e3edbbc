// ABOUTME: Token usage records for agent replies and their SQLite persistence
// ABOUTME: Aggregates model token consumption per agent and user for reporting

package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TokenUsage is the token accounting of one agent reply.
type TokenUsage struct {
	ID             string
	ConversationID string
	MessageID      string // the agent reply that consumed the tokens
	AgentID        string
	UserID         string
	InputTokens    int
	OutputTokens   int
	CreatedAt      time.Time
}

// UsageFilter narrows GetUsageStats. Nil fields match everything.
type UsageFilter struct {
	AgentID *string
	UserID  *string
	Since   *time.Time
	Until   *time.Time
}

// UsageStats aggregates token usage.
type UsageStats struct {
	TotalInput   int64
	TotalOutput  int64
	TotalTokens  int64
	RequestCount int64
}

// UsageStore records and aggregates token usage
type UsageStore interface {
	// SaveUsage records usage for a reply. A second record for the same
	// MessageID is ignored.
	SaveUsage(ctx context.Context, usage *TokenUsage) error
	ListConversationUsage(ctx context.Context, conversationID string) ([]*TokenUsage, error)
	GetUsageStats(ctx context.Context, filter UsageFilter) (*UsageStats, error)
}

// SaveUsage stores a token usage record.
func (s *SQLiteStore) SaveUsage(ctx context.Context, usage *TokenUsage) error {
	query := `
		INSERT INTO message_usage (
			id, conversation_id, message_id, agent_id, user_id,
			input_tokens, output_tokens, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		usage.ID,
		usage.ConversationID,
		usage.MessageID,
		usage.AgentID,
		usage.UserID,
		usage.InputTokens,
		usage.OutputTokens,
		formatTime(usage.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) && strings.Contains(err.Error(), "FOREIGN KEY") {
			return ErrNotFound
		}
		return fmt.Errorf("inserting usage: %w", err)
	}

	s.logger.Debug("saved token usage",
		"id", usage.ID,
		"conversation_id", usage.ConversationID,
		"agent_id", usage.AgentID,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
	return nil
}

// ListConversationUsage retrieves the usage records of a conversation, oldest first.
func (s *SQLiteStore) ListConversationUsage(ctx context.Context, conversationID string) ([]*TokenUsage, error) {
	query := `
		SELECT id, conversation_id, message_id, agent_id, user_id,
		       input_tokens, output_tokens, created_at
		FROM message_usage
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var usages []*TokenUsage
	for rows.Next() {
		usage, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		usages = append(usages, usage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage rows: %w", err)
	}

	return usages, nil
}

// GetUsageStats returns aggregated usage statistics with optional filters.
func (s *SQLiteStore) GetUsageStats(ctx context.Context, filter UsageFilter) (*UsageStats, error) {
	query := `
		SELECT
			COALESCE(SUM(input_tokens), 0) as total_input,
			COALESCE(SUM(output_tokens), 0) as total_output,
			COUNT(*) as request_count
		FROM message_usage
		WHERE 1=1
	`
	args := []any{}

	if filter.AgentID != nil {
		query += " AND agent_id = ?"
		args = append(args, *filter.AgentID)
	}
	if filter.UserID != nil {
		query += " AND user_id = ?"
		args = append(args, *filter.UserID)
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, formatTime(*filter.Since))
	}
	if filter.Until != nil {
		query += " AND created_at < ?"
		args = append(args, formatTime(*filter.Until))
	}

	var stats UsageStats
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalInput,
		&stats.TotalOutput,
		&stats.RequestCount,
	)
	if err != nil {
		return nil, fmt.Errorf("querying usage stats: %w", err)
	}
	stats.TotalTokens = stats.TotalInput + stats.TotalOutput

	return &stats, nil
}

// scanUsage scans a single usage row into a TokenUsage struct.
func scanUsage(row rowScanner) (*TokenUsage, error) {
	var usage TokenUsage
	var createdAtStr string

	err := row.Scan(
		&usage.ID,
		&usage.ConversationID,
		&usage.MessageID,
		&usage.AgentID,
		&usage.UserID,
		&usage.InputTokens,
		&usage.OutputTokens,
		&createdAtStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning usage row: %w", err)
	}

	usage.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &usage, nil
}

// matches reports whether u passes filter.
func (f UsageFilter) matches(u *TokenUsage) bool {
	switch {
	case f.AgentID != nil && u.AgentID != *f.AgentID:
		return false
	case f.UserID != nil && u.UserID != *f.UserID:
		return false
	case f.Since != nil && u.CreatedAt.Before(*f.Since):
		return false
	case f.Until != nil && !u.CreatedAt.Before(*f.Until):
		return false
	}
	return true
}

// Ensure SQLiteStore implements UsageStore interface.
var _ UsageStore = (*SQLiteStore)(nil)
