package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/realtor_assistant/internal/extractor"
)

// MockExtractor is a mock implementation of extractor.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, req extractor.Request) (*extractor.Extraction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extractor.Extraction), args.Error(1)
}
