package mocks

import (
	"context"

	"github.com/dukex/restflow/pkg/backend"
	"github.com/stretchr/testify/mock"
)

// MockReader is a mock implementation of backend.Reader interface.
type MockReader struct {
	mock.Mock
}

func (m *MockReader) Read(ctx context.Context, query backend.Query) ([]map[string]any, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]map[string]any), args.Error(1)
}
