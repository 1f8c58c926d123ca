// test/mock/notifier.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of alert.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipients []string, subject, body string) error {
	args := m.Called(ctx, recipients, subject, body)
	return args.Error(0)
}
