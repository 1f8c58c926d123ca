// test/mock/classifier.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gestore-cpu/gestione-doc-security/risk"
)

// MockClassifier is a mock implementation of risk.Classifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, features risk.Features) (risk.Classification, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(risk.Classification), args.Error(1)
}
