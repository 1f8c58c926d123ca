// test/mock/services.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/service"
)

// MockPolicyService is a mock implementation of service.IPolicyService
type MockPolicyService struct {
	mock.Mock
}

func (m *MockPolicyService) CreatePolicy(ctx context.Context, policy model.AutoPolicy, userID string) (*model.AutoPolicy, error) {
	args := m.Called(ctx, policy, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoPolicy), args.Error(1)
}

func (m *MockPolicyService) ActivatePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error) {
	args := m.Called(ctx, policyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoPolicy), args.Error(1)
}

func (m *MockPolicyService) DeactivatePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error) {
	args := m.Called(ctx, policyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoPolicy), args.Error(1)
}

func (m *MockPolicyService) TogglePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error) {
	args := m.Called(ctx, policyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoPolicy), args.Error(1)
}

func (m *MockPolicyService) GetPolicy(ctx context.Context, policyID string) (*model.AutoPolicy, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoPolicy), args.Error(1)
}

func (m *MockPolicyService) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.AutoPolicy, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AutoPolicy), args.Error(1)
}

// MockAlertService is a mock implementation of service.IAlertService
type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) GetAlert(ctx context.Context, alertID string) (*model.SecurityAlert, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SecurityAlert), args.Error(1)
}

func (m *MockAlertService) OpenAlerts(ctx context.Context, severity model.Severity, userID string, limit int) ([]*model.SecurityAlert, error) {
	args := m.Called(ctx, severity, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SecurityAlert), args.Error(1)
}

func (m *MockAlertService) CloseAlert(ctx context.Context, alertID, closedBy, note string) (*model.SecurityAlert, error) {
	args := m.Called(ctx, alertID, closedBy, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SecurityAlert), args.Error(1)
}

func (m *MockAlertService) Stats(ctx context.Context, days int) (*model.AlertStats, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertStats), args.Error(1)
}

var _ service.IPolicyService = (*MockPolicyService)(nil)
var _ service.IAlertService = (*MockAlertService)(nil)
