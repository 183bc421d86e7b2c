package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/realtor_assistant/internal/database"
)

const sendTimeout = 15 * time.Second

// Service delivers appointment notifications to the realtor in the background.
// Failures are logged and never reach the conversation.
type Service struct {
	emailNotifier Notifier
	recipient     string
	log           zerolog.Logger
	wg            sync.WaitGroup
}

// NewService creates a notification service
func NewService(emailNotifier Notifier, recipient string, log zerolog.Logger) *Service {
	return &Service{
		emailNotifier: emailNotifier,
		recipient:     recipient,
		log:           log.With().Str("component", "notify").Logger(),
	}
}

// AppointmentBooked announces a new booking
func (s *Service) AppointmentBooked(ctx context.Context, a database.Appointment) {
	s.dispatch(ctx, Notification{Event: EventBooked, Appointment: a})
}

// AppointmentCancelled announces a cancellation
func (s *Service) AppointmentCancelled(ctx context.Context, a database.Appointment) {
	s.dispatch(ctx, Notification{Event: EventCancelled, Appointment: a})
}

func (s *Service) dispatch(ctx context.Context, n Notification) {
	if !s.IsEmailAvailable() {
		s.log.Debug().Str("event", string(n.Event)).Msg("email not configured, skipping notification")
		return
	}

	// The turn's context ends with the request; delivery should not.
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		log := s.log.With().
			Str("notifier", s.emailNotifier.Name()).
			Str("event", string(n.Event)).
			Str("appointment_id", n.Appointment.ID).
			Logger()

		if err := s.emailNotifier.Send(sendCtx, n, s.recipient); err != nil {
			log.Error().Err(err).Msg("notification failed")
			return
		}
		log.Info().Msg("notification sent")
	}()
}

// Wait blocks until in-flight notifications finish
func (s *Service) Wait() {
	s.wg.Wait()
}

// IsEmailAvailable returns true if email notifications can be used
func (s *Service) IsEmailAvailable() bool {
	return s.emailNotifier != nil && s.emailNotifier.IsConfigured() && s.recipient != ""
}
