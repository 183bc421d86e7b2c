package database

import (
	"context"
	"fmt"
	"time"
)

// Direction tells whether a turn came from the sender or was sent back.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ConversationTurn is one immutable ledger entry.
type ConversationTurn struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Direction      Direction `json:"direction"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

// AppendTurn writes a turn to the ledger and sets its ID.
func (d *DB) AppendTurn(ctx context.Context, turn *ConversationTurn) error {
	if turn.ConversationID == "" {
		return fmt.Errorf("conversation id is required")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	turn.Timestamp = turn.Timestamp.UTC()

	result, err := d.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id, direction, message, timestamp)
		VALUES (?, ?, ?, ?)
	`, turn.ConversationID, turn.Direction, turn.Text, turn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get turn id: %w", err)
	}
	turn.ID = id
	return nil
}

// RecentTurns returns the last limit turns of a conversation, oldest first.
func (d *DB) RecentTurns(ctx context.Context, conversationID string, limit int) ([]ConversationTurn, error) {
	if limit <= 0 {
		return []ConversationTurn{}, nil
	}

	rows, err := d.QueryContext(ctx, `
		SELECT id, conversation_id, direction, message, timestamp
		FROM conversations
		WHERE conversation_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []ConversationTurn{}
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Direction, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	// Reverse to get chronological order (oldest first)
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// CountTurns returns the number of ledger entries for a conversation
func (d *DB) CountTurns(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE conversation_id = ?`, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return count, nil
}
