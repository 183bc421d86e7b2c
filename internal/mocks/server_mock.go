package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/realtor_assistant/internal/sheets"
)

// MockSheetSyncer is a mock implementation of server.SheetSyncer
type MockSheetSyncer struct {
	mock.Mock
}

func (m *MockSheetSyncer) RunNow(ctx context.Context) (sheets.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(sheets.Result), args.Error(1)
}

func (m *MockSheetSyncer) PollNow() {
	m.Called()
}

// MockWhatsAppStatus is a mock implementation of server.WhatsAppStatus
type MockWhatsAppStatus struct {
	mock.Mock
}

func (m *MockWhatsAppStatus) Status() (string, string, string) {
	args := m.Called()
	return args.String(0), args.String(1), args.String(2)
}
