package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/realtor_assistant/internal/database"
)

// MockAppointmentNotifier is a mock implementation of router.Notifier
type MockAppointmentNotifier struct {
	mock.Mock
}

func (m *MockAppointmentNotifier) AppointmentBooked(ctx context.Context, a database.Appointment) {
	m.Called(ctx, a)
}

func (m *MockAppointmentNotifier) AppointmentCancelled(ctx context.Context, a database.Appointment) {
	m.Called(ctx, a)
}

// MockSyncTrigger is a mock implementation of router.SyncTrigger
type MockSyncTrigger struct {
	mock.Mock
}

func (m *MockSyncTrigger) PollNow() {
	m.Called()
}
