package migrations

import (
	"database/sql"
	"fmt"

	"github.com/omriShneor/realtor_assistant/internal/conflict"
)

// OverlapMessage is the RAISE message used by the overlap triggers.
const OverlapMessage = "appointment overlaps an active booking"

func init() {
	Register(Migration{
		Version: 3,
		Name:    "appointment_overlap_guard",
		Up:      appointmentOverlapGuard,
	})
}

// Backstop for the conflict engine: an active row may never be written when its
// buffered interval intersects another active row's buffered interval.
func appointmentOverlapGuard(tx *sql.Tx) error {
	gap := int64(2 * conflict.DefaultBuffer.Seconds())

	collides := fmt.Sprintf(`EXISTS (
		SELECT 1 FROM appointments a
		WHERE a.id != NEW.id
			AND a.status IN ('PENDING', 'CONFIRMED')
			AND a.start_at < NEW.end_at + %d
			AND NEW.start_at < a.end_at + %d
	)`, gap, gap)

	return execAll(tx, []string{
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS appointments_overlap_insert
			BEFORE INSERT ON appointments
			WHEN NEW.status IN ('PENDING', 'CONFIRMED') AND %s
			BEGIN
				SELECT RAISE(ABORT, '%s');
			END`, collides, OverlapMessage),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS appointments_overlap_update
			BEFORE UPDATE OF status, start_at, end_at ON appointments
			WHEN NEW.status IN ('PENDING', 'CONFIRMED') AND %s
			BEGIN
				SELECT RAISE(ABORT, '%s');
			END`, collides, OverlapMessage),
	})
}
