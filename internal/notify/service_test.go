package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/realtor_assistant/internal/database"
)

// MockNotifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n Notification, recipient string) error {
	args := m.Called(ctx, n, recipient)
	return args.Error(0)
}

func (m *MockNotifier) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNotifier) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func testAppointment() database.Appointment {
	start := time.Date(2026, 1, 16, 14, 0, 0, 0, time.UTC)
	return database.Appointment{
		ID:             "appt-1",
		ConversationID: "+15550001",
		PartyName:      "John Smith",
		Type:           database.TypeConsultation,
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		Status:         database.StatusConfirmed,
	}
}

func TestIsEmailAvailable(t *testing.T) {
	t.Run("available when notifier configured", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(true)

		service := NewService(emailNotifier, "realtor@example.com", zerolog.Nop())
		assert.True(t, service.IsEmailAvailable())

		emailNotifier.AssertExpectations(t)
	})

	t.Run("not available when notifier not configured", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(false)

		service := NewService(emailNotifier, "realtor@example.com", zerolog.Nop())
		assert.False(t, service.IsEmailAvailable())
	})

	t.Run("not available when notifier is nil", func(t *testing.T) {
		service := NewService(nil, "realtor@example.com", zerolog.Nop())
		assert.False(t, service.IsEmailAvailable())
	})

	t.Run("not available without recipient", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(true)

		service := NewService(emailNotifier, "", zerolog.Nop())
		assert.False(t, service.IsEmailAvailable())
	})
}

func TestAppointmentBookedSendsEmail(t *testing.T) {
	emailNotifier := &MockNotifier{}
	emailNotifier.On("IsConfigured").Return(true)
	emailNotifier.On("Name").Return("mock")
	emailNotifier.On("Send", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.Event == EventBooked && n.Appointment.ID == "appt-1"
	}), "realtor@example.com").Return(nil).Once()

	service := NewService(emailNotifier, "realtor@example.com", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	service.AppointmentBooked(ctx, testAppointment())
	cancel()
	service.Wait()

	emailNotifier.AssertExpectations(t)
}

func TestAppointmentCancelledSendFailureIsSwallowed(t *testing.T) {
	emailNotifier := &MockNotifier{}
	emailNotifier.On("IsConfigured").Return(true)
	emailNotifier.On("Name").Return("mock")
	emailNotifier.On("Send", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.Event == EventCancelled
	}), "realtor@example.com").Return(errors.New("smtp down")).Once()

	service := NewService(emailNotifier, "realtor@example.com", zerolog.Nop())
	service.AppointmentCancelled(context.Background(), testAppointment())
	service.Wait()

	emailNotifier.AssertExpectations(t)
}

func TestUnconfiguredServiceSkipsSend(t *testing.T) {
	emailNotifier := &MockNotifier{}
	emailNotifier.On("IsConfigured").Return(false)

	service := NewService(emailNotifier, "realtor@example.com", zerolog.Nop())
	service.AppointmentBooked(context.Background(), testAppointment())
	service.Wait()

	emailNotifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}
