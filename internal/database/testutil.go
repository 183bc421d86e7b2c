package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory SQLite database for testing.
// The database is automatically closed when the test completes.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CreateTestAppointment stores an appointment with the given range and status.
func CreateTestAppointment(t *testing.T, db *DB, conversationID string, start time.Time, d time.Duration, status AppointmentStatus) *Appointment {
	t.Helper()

	a := &Appointment{
		ConversationID: conversationID,
		PartyName:      "Test Client",
		Type:           TypeConsultation,
		StartTime:      start,
		EndTime:        start.Add(d),
		Status:         status,
	}
	require.NoError(t, db.InsertAppointment(context.Background(), a), "failed to create test appointment")
	return a
}
