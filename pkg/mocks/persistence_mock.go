package mocks

import (
	"context"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockRouteRepository is a mock implementation of persistence.RouteRepository interface.
type MockRouteRepository struct {
	mock.Mock
}

func (m *MockRouteRepository) GetAll(ctx context.Context) ([]*models.Route, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Route), args.Error(1)
}

func (m *MockRouteRepository) GetByID(ctx context.Context, id string) (*models.Route, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Route), args.Error(1)
}

func (m *MockRouteRepository) Save(ctx context.Context, route *models.Route) error {
	args := m.Called(ctx, route)

	return args.Error(0)
}

func (m *MockRouteRepository) UpdateField(ctx context.Context, id string, field string, value any) error {
	args := m.Called(ctx, id, field, value)

	return args.Error(0)
}

// MockRequestRepository is a mock implementation of persistence.RequestRepository interface.
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, record *models.RequestRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*models.RequestRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.RequestRecord), args.Error(1)
}

func (m *MockRequestRepository) Update(ctx context.Context, id string, fields models.RequestFields) error {
	args := m.Called(ctx, id, fields)

	return args.Error(0)
}

// MockFlowRepository is a mock implementation of persistence.FlowRepository interface.
type MockFlowRepository struct {
	mock.Mock
}

func (m *MockFlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Routes   *MockRouteRepository
	Requests *MockRequestRepository
	Flows    *MockFlowRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Routes:   &MockRouteRepository{},
		Requests: &MockRequestRepository{},
		Flows:    &MockFlowRepository{},
	}
}

func (m *MockPersistence) RouteRepository() persistence.RouteRepository {
	return m.Routes
}

func (m *MockPersistence) RequestRepository() persistence.RequestRepository {
	return m.Requests
}

func (m *MockPersistence) FlowRepository() persistence.FlowRepository {
	return m.Flows
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
