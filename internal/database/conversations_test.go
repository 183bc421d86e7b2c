package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTurnAndRecentTurns(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		dir := DirectionInbound
		if i%2 == 1 {
			dir = DirectionOutbound
		}
		turn := &ConversationTurn{
			ConversationID: "+15550001",
			Direction:      dir,
			Text:           fmt.Sprintf("turn %d", i),
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.AppendTurn(ctx, turn))
		assert.NotZero(t, turn.ID)
	}

	t.Run("returns newest window oldest first", func(t *testing.T) {
		turns, err := db.RecentTurns(ctx, "+15550001", 3)
		require.NoError(t, err)
		require.Len(t, turns, 3)
		assert.Equal(t, "turn 2", turns[0].Text)
		assert.Equal(t, "turn 3", turns[1].Text)
		assert.Equal(t, "turn 4", turns[2].Text)
		assert.Equal(t, DirectionOutbound, turns[1].Direction)
	})

	t.Run("limit larger than history", func(t *testing.T) {
		turns, err := db.RecentTurns(ctx, "+15550001", 50)
		require.NoError(t, err)
		assert.Len(t, turns, 5)
	})

	t.Run("zero limit", func(t *testing.T) {
		turns, err := db.RecentTurns(ctx, "+15550001", 0)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("unknown conversation is empty", func(t *testing.T) {
		turns, err := db.RecentTurns(ctx, "+15559999", 6)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

func TestRecentTurnsIsolatesConversations(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AppendTurn(ctx, &ConversationTurn{ConversationID: "a", Direction: DirectionInbound, Text: "from a"}))
	require.NoError(t, db.AppendTurn(ctx, &ConversationTurn{ConversationID: "b", Direction: DirectionInbound, Text: "from b"}))

	turns, err := db.RecentTurns(ctx, "a", 6)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "from a", turns[0].Text)

	count, err := db.CountTurns(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAppendTurnRequiresConversation(t *testing.T) {
	db := NewTestDB(t)
	err := db.AppendTurn(context.Background(), &ConversationTurn{Direction: DirectionInbound, Text: "hi"})
	assert.Error(t, err)
}

func TestLedgerIsAppendOnly(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	turn := &ConversationTurn{ConversationID: "+1", Direction: DirectionInbound, Text: "original"}
	require.NoError(t, db.AppendTurn(ctx, turn))

	_, err := db.ExecContext(ctx, `UPDATE conversations SET message = 'edited' WHERE id = ?`, turn.ID)
	assert.Error(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, turn.ID)
	assert.Error(t, err)

	turns, err := db.RecentTurns(ctx, "+1", 6)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "original", turns[0].Text)
}
