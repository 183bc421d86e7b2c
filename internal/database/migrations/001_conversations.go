package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 1,
		Name:    "conversations",
		Up:      conversationsSchema,
	})
}

// The ledger is append-only: updates and deletes are rejected by triggers.
func conversationsSchema(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			direction TEXT NOT NULL CHECK(direction IN ('inbound', 'outbound')),
			message TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_conversation ON conversations(conversation_id, id DESC)`,
		`CREATE TRIGGER IF NOT EXISTS conversations_no_update
			BEFORE UPDATE ON conversations
			BEGIN
				SELECT RAISE(ABORT, 'conversation ledger is append-only');
			END`,
		`CREATE TRIGGER IF NOT EXISTS conversations_no_delete
			BEFORE DELETE ON conversations
			BEGIN
				SELECT RAISE(ABORT, 'conversation ledger is append-only');
			END`,
	})
}
