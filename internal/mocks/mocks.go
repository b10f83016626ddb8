// internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockRateAPI mocks the RateAPI interface
type MockRateAPI struct {
	mock.Mock
}

func (m *MockRateAPI) FetchRates(ctx context.Context, query entity.RateQuery) (*entity.RateTable, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RateTable), args.Error(1)
}

// MockRateStore mocks the RateStore interface
type MockRateStore struct {
	mock.Mock
}

func (m *MockRateStore) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateStore) Load(ctx context.Context) (*entity.RateTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RateTable), args.Error(1)
}

func (m *MockRateStore) Save(ctx context.Context, table *entity.RateTable) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

// MockLogger mocks the logger interface
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	args := m.Called(key, value)
	return args.Get(0).(logger.Logger)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	args := m.Called(fields)
	return args.Get(0).(logger.Logger)
}
