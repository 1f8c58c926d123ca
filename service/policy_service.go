package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestore-cpu/gestione-doc-security/audit"
	"github.com/gestore-cpu/gestione-doc-security/dao"
	"github.com/gestore-cpu/gestione-doc-security/db"
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/util"
)

// IPolicyService defines the interface for auto-policy operations
type IPolicyService interface {
	CreatePolicy(ctx context.Context, policy model.AutoPolicy, userID string) (*model.AutoPolicy, error)
	ActivatePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error)
	DeactivatePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error)
	TogglePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error)
	GetPolicy(ctx context.Context, policyID string) (*model.AutoPolicy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]*model.AutoPolicy, error)
}

// PolicyService handles business logic for auto-policy operations.
// Every activation change invalidates the active-policy cache so the
// evaluator sees it on the next decision.
type PolicyService struct {
	policyDAO       *dao.PolicyDAO
	validationUtil  *util.ValidationUtil
	auditSvc        audit.Service
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(policyDAO *dao.PolicyDAO, validationUtil *util.ValidationUtil, auditSvc audit.Service, notificationSvc *util.NotificationService, eventBus *util.EventBus) *PolicyService {
	service := &PolicyService{
		policyDAO:       policyDAO,
		validationUtil:  validationUtil,
		auditSvc:        auditSvc,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe("policy.created", service.handlePolicyCreated)
	eventBus.Subscribe("policy.activation_changed", service.handleActivationChanged)

	return service
}

func (s *PolicyService) handlePolicyCreated(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.AutoPolicy)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Policy created event received", zap.String("policyID", policy.ID))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "created", policy); err != nil {
		logger.Warn("Failed to send policy creation notification",
			zap.Error(err), zap.String("policyID", policy.ID))
	}
	return nil
}

func (s *PolicyService) handleActivationChanged(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.AutoPolicy)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	changeType := "deactivated"
	if policy.Active {
		changeType = "activated"
	}
	if err := s.notificationSvc.NotifyPolicyChange(ctx, changeType, policy); err != nil {
		logger.Warn("Failed to send policy activation notification",
			zap.Error(err), zap.String("policyID", policy.ID))
	}
	return nil
}

// CreatePolicy stores a new policy in the inactive state. Activation is
// a separate, audited step.
func (s *PolicyService) CreatePolicy(ctx context.Context, policy model.AutoPolicy, userID string) (*model.AutoPolicy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, fmt.Errorf("%w: %s", doc_errors.ErrInvalidPolicyData, err)
	}

	condition, err := model.ParseCondition([]byte(policy.RawCondition))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", doc_errors.ErrMalformedCondition, err)
	}

	policy.ID = uuid.NewString()
	policy.Condition = condition
	policy.Active = false
	policy.ApprovedBy = ""
	policy.ApprovedAt = nil
	policy.CreatedBy = userID
	policy.CreatedAt = time.Now().UTC()
	policy.UpdatedAt = policy.CreatedAt

	if err := s.policyDAO.CreatePolicy(ctx, &policy); err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	s.appendAudit(ctx, userID, audit.ActionPolicyCreated, policy.ID)
	s.eventBus.Publish(ctx, "policy.created", policy)

	logger.Info("Policy created successfully",
		zap.String("policyID", policy.ID),
		zap.String("userID", userID))
	return &policy, nil
}

// ActivatePolicy enables a policy and stamps the approval metadata.
func (s *PolicyService) ActivatePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error) {
	now := time.Now().UTC()
	if err := s.policyDAO.SetActivation(ctx, policyID, true, userID, &now); err != nil {
		if errors.Is(err, doc_errors.ErrPolicyNotFound) {
			return nil, err
		}
		logger.Error("Error activating policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, fmt.Errorf("failed to activate policy: %w", err)
	}

	s.invalidateActiveCache(ctx)
	s.appendAudit(ctx, userID, audit.ActionPolicyActivated, policyID)

	policy, err := s.policyDAO.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	s.eventBus.Publish(ctx, "policy.activation_changed", *policy)

	logger.Info("Policy activated",
		zap.String("policyID", policyID),
		zap.String("approvedBy", userID))
	return policy, nil
}

// DeactivatePolicy disables a policy and clears its approval metadata.
func (s *PolicyService) DeactivatePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error) {
	if err := s.policyDAO.SetActivation(ctx, policyID, false, "", nil); err != nil {
		if errors.Is(err, doc_errors.ErrPolicyNotFound) {
			return nil, err
		}
		logger.Error("Error deactivating policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, fmt.Errorf("failed to deactivate policy: %w", err)
	}

	s.invalidateActiveCache(ctx)
	s.appendAudit(ctx, userID, audit.ActionPolicyDisabled, policyID)

	policy, err := s.policyDAO.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	s.eventBus.Publish(ctx, "policy.activation_changed", *policy)

	logger.Info("Policy deactivated",
		zap.String("policyID", policyID),
		zap.String("userID", userID))
	return policy, nil
}

// TogglePolicy flips activation. Turning a policy on this way records
// the toggling user as the approver; turning it off clears approval.
func (s *PolicyService) TogglePolicy(ctx context.Context, policyID, userID string) (*model.AutoPolicy, error) {
	policy, err := s.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if policy.Active {
		return s.DeactivatePolicy(ctx, policyID, userID)
	}
	return s.ActivatePolicy(ctx, policyID, userID)
}

// GetPolicy retrieves a policy by its ID
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.AutoPolicy, error) {
	policy, err := s.policyDAO.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, doc_errors.ErrPolicyNotFound) {
			return nil, doc_errors.ErrPolicyNotFound
		}
		logger.Error("Error retrieving policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, doc_errors.ErrInternalServer
	}
	return policy, nil
}

// ListPolicies retrieves all policies with pagination
func (s *PolicyService) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.AutoPolicy, error) {
	policies, err := s.policyDAO.ListPolicies(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing policies", zap.Error(err),
			zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

func (s *PolicyService) invalidateActiveCache(ctx context.Context) {
	if err := db.InvalidateActivePolicies(ctx); err != nil {
		logger.Warn("Failed to invalidate active policy cache", zap.Error(err))
	}
}

func (s *PolicyService) appendAudit(ctx context.Context, userID, action, policyID string) {
	event := audit.Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Source:     audit.SourceUnknown,
		Action:     action,
		ObjectType: "policy",
		ObjectID:   policyID,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.auditSvc.Append(ctx, event); err != nil {
		logger.Error("Failed to append policy audit event",
			zap.Error(err), zap.String("action", action), zap.String("policyID", policyID))
	}
}
