// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gestore-cpu/gestione-doc-security/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Append(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditService) Query(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Event), args.Error(1)
}

func (m *MockAuditService) CountActions(ctx context.Context, userID string, actions []string, since time.Time) (int, error) {
	args := m.Called(ctx, userID, actions, since)
	return args.Int(0), args.Error(1)
}

func (m *MockAuditService) KnownSource(ctx context.Context, userID, source string, since, before time.Time) (bool, error) {
	args := m.Called(ctx, userID, source, since, before)
	return args.Bool(0), args.Error(1)
}
