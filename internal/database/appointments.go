package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omriShneor/realtor_assistant/internal/conflict"
)

// AppointmentStatus is the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusDone      AppointmentStatus = "DONE"
)

// Active reports whether the appointment still occupies the calendar.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ParseStatus normalizes free-form status text (e.g. typed into the sheet).
func ParseStatus(value string) (AppointmentStatus, bool) {
	switch AppointmentStatus(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCancelled, "CANCELED":
		return StatusCancelled, true
	case StatusDone:
		return StatusDone, true
	}
	return "", false
}

// AppointmentType is the kind of meeting requested
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeShowing      AppointmentType = "showing"
	TypeCancellation AppointmentType = "cancellation"
	TypeOther        AppointmentType = "other"
)

// Bookable reports whether the type creates a calendar entry.
func (t AppointmentType) Bookable() bool {
	return t == TypeConsultation || t == TypeShowing
}

// Appointment is a persisted booking
type Appointment struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	PartyName      string            `json:"party_name"`
	Type           AppointmentType   `json:"appointment_type"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	Status         AppointmentStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Interval returns the booked range.
func (a Appointment) Interval() conflict.Interval {
	return conflict.Interval{Start: a.StartTime, End: a.EndTime}
}

// Booking returns the appointment as the conflict engine sees it.
func (a Appointment) Booking() conflict.Booking {
	return conflict.Booking{ID: a.ID, Interval: a.Interval()}
}

// appointments holds the store operations shared by DB and Tx.
type appointments struct {
	q      queryer
	engine *conflict.Engine
}

const appointmentColumns = `id, conversation_id, party_name, appointment_type, start_at, end_at, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var startAt, endAt int64
	if err := row.Scan(
		&a.ID, &a.ConversationID, &a.PartyName, &a.Type, &startAt, &endAt,
		&a.Status, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.StartTime = time.Unix(startAt, 0).UTC()
	a.EndTime = time.Unix(endAt, 0).UTC()
	return &a, nil
}

func (s appointments) queryAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}
	return result, nil
}

// InsertAppointment stores a new appointment. An empty ID is filled with a UUID
// and an empty status defaults to PENDING.
func (s appointments) InsertAppointment(ctx context.Context, a *Appointment) error {
	if a.PartyName == "" {
		return fmt.Errorf("party name is required")
	}
	if a.StartTime.IsZero() || !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("appointment needs a start before its end")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Type == "" {
		a.Type = TypeConsultation
	}
	now := time.Now().UTC()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ConversationID, a.PartyName, a.Type, a.StartTime.Unix(), a.EndTime.Unix(), a.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", classify(err))
	}

	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAppointment returns the appointment or (nil, nil) when it does not exist.
func (s appointments) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(s.q.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// UpdateAppointmentStatus moves an appointment to a new status.
func (s appointments) UpdateAppointmentStatus(ctx context.Context, id string, status AppointmentStatus) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE appointments
		SET status = ?, updated_at = ?
		WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAppointment removes an appointment. Deleting a missing id is not an error.
func (s appointments) DeleteAppointment(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

// ListActiveAppointmentsBetween returns active appointments whose range intersects [from, to).
func (s appointments) ListActiveAppointmentsBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN (?, ?)
			AND start_at < ?
			AND end_at > ?
		ORDER BY start_at ASC, id ASC
	`, StatusPending, StatusConfirmed, to.Unix(), from.Unix())
}

// FindActiveOverlap returns the first active appointment that conflicts with iv
// under the buffer rule, skipping excludeID, or nil when the slot is free.
func (s appointments) FindActiveOverlap(ctx context.Context, iv conflict.Interval, excludeID string) (*Appointment, error) {
	window := s.engine.Window(iv)
	candidates, err := s.ListActiveAppointmentsBetween(ctx, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	bookings := make([]conflict.Booking, len(candidates))
	for i := range candidates {
		bookings[i] = candidates[i].Booking()
	}

	res := s.engine.Check(iv, bookings, excludeID)
	if !res.HasConflict {
		return nil, nil
	}
	for i := range candidates {
		if candidates[i].ID == res.With.ID {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// ListAppointmentsByConversation returns every stored appointment a conversation owns.
func (s appointments) ListAppointmentsByConversation(ctx context.Context, conversationID string) ([]Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE conversation_id = ?
		ORDER BY start_at ASC, id ASC
	`, conversationID)
}

// ListActiveAppointmentsByConversation returns a conversation's active appointments, newest first.
func (s appointments) ListActiveAppointmentsByConversation(ctx context.Context, conversationID string) ([]Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE conversation_id = ? AND status IN (?, ?)
		ORDER BY created_at DESC, start_at DESC
	`, conversationID, StatusPending, StatusConfirmed)
}

// ListAppointments returns all stored appointments ordered by start.
func (s appointments) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY start_at ASC, id ASC
	`)
}
