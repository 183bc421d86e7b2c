package notify

import (
	"context"

	"github.com/omriShneor/realtor_assistant/internal/database"
)

// Event is the kind of appointment change being announced
type Event string

const (
	EventBooked    Event = "booked"
	EventCancelled Event = "cancelled"
)

// Notification describes one committed appointment change
type Notification struct {
	Event       Event
	Appointment database.Appointment
}

// Notifier sends notifications for appointment changes to a specific recipient
type Notifier interface {
	// Send sends a notification to the specified recipient
	Send(ctx context.Context, n Notification, recipient string) error
	// Name returns the notifier type name (for logging)
	Name() string
	// IsConfigured returns true if the notifier has server-side config
	IsConfigured() bool
}
