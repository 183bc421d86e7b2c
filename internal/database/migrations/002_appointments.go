package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 2,
		Name:    "appointments",
		Up:      appointmentsSchema,
	})
}

// start_at/end_at are unix seconds so overlap checks can run in SQL.
func appointmentsSchema(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			party_name TEXT NOT NULL,
			appointment_type TEXT NOT NULL DEFAULT 'consultation',
			start_at INTEGER NOT NULL,
			end_at INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK(status IN ('PENDING', 'CONFIRMED', 'CANCELLED', 'DONE')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK(end_at > start_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_conversation ON appointments(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_active_range ON appointments(status, start_at, end_at)`,
	})
}
