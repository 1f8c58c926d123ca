package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestore-cpu/gestione-doc-security/alert"
	"github.com/gestore-cpu/gestione-doc-security/audit"
	"github.com/gestore-cpu/gestione-doc-security/dao"
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/pdp/engine"
	pdp_model "github.com/gestore-cpu/gestione-doc-security/pdp/model"
	"github.com/gestore-cpu/gestione-doc-security/permission"
	"github.com/gestore-cpu/gestione-doc-security/risk"
	"github.com/gestore-cpu/gestione-doc-security/util"
)

// AutoDecider marks decisions taken by the policy engine rather than a
// human reviewer.
const AutoDecider = "system"

// IAccessService defines the interface for document access operations
type IAccessService interface {
	VisibleDocuments(ctx context.Context, userID string, limit, offset int) ([]model.Document, error)
	RecordAccess(ctx context.Context, userID, documentID, source, action string) error
	RecordLogin(ctx context.Context, userID, source string) error
	SubmitRequest(ctx context.Context, userID, documentID, note, source string) (*model.AccessRequest, error)
	DecideRequest(ctx context.Context, requestID string, approve bool, response, decidedBy string) (*model.AccessRequest, error)
	GetRequest(ctx context.Context, requestID string) (*model.AccessRequest, error)
	HighRiskRequests(ctx context.Context, limit int) ([]*model.AccessRequest, error)
	RiskStats(ctx context.Context) (*RiskOverview, error)
}

// AccessService orchestrates the document access flow: visibility,
// request submission with automatic policy decisions, manual review,
// and the audit and anomaly hooks on every read.
type AccessService struct {
	requestDAO      *dao.RequestDAO
	userDAO         *dao.UserDAO
	documentDAO     *dao.DocumentDAO
	permFilter      *permission.Filter
	evaluator       *engine.Evaluator
	scorer          *risk.Scorer
	alertEngine     *alert.Engine
	auditSvc        audit.Service
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

func NewAccessService(
	requestDAO *dao.RequestDAO,
	userDAO *dao.UserDAO,
	documentDAO *dao.DocumentDAO,
	permFilter *permission.Filter,
	evaluator *engine.Evaluator,
	scorer *risk.Scorer,
	alertEngine *alert.Engine,
	auditSvc audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *AccessService {
	return &AccessService{
		requestDAO:      requestDAO,
		userDAO:         userDAO,
		documentDAO:     documentDAO,
		permFilter:      permFilter,
		evaluator:       evaluator,
		scorer:          scorer,
		alertEngine:     alertEngine,
		auditSvc:        auditSvc,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}
}

// VisibleDocuments lists the documents the user may see.
func (s *AccessService) VisibleDocuments(ctx context.Context, userID string, limit, offset int) ([]model.Document, error) {
	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.permFilter.VisibleDocuments(ctx, *user, limit, offset)
}

// RecordAccess registers a successful document read. The permission
// check runs first; the audit event is appended and the anomaly rules
// run synchronously on it, so the caller observes any alert the read
// provoked.
func (s *AccessService) RecordAccess(ctx context.Context, userID, documentID, source, action string) error {
	if action != audit.ActionDownloadSuccess && action != audit.ActionViewSuccess {
		return fmt.Errorf("unsupported access action: %s", action)
	}

	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	doc, err := s.documentDAO.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if !s.permFilter.CanView(*user, *doc) {
		logger.Warn("Access denied",
			zap.String("userID", userID),
			zap.String("documentID", documentID))
		return doc_errors.ErrAccessDenied
	}

	event := audit.Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Source:     normalizeSource(source),
		Action:     action,
		ObjectType: "document",
		ObjectID:   documentID,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.auditSvc.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to record access event: %w", err)
	}

	s.alertEngine.Evaluate(ctx, event)
	return nil
}

// RecordLogin registers a successful authentication and runs the
// anomaly rules on it.
func (s *AccessService) RecordLogin(ctx context.Context, userID, source string) error {
	event := audit.Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Source:    normalizeSource(source),
		Action:    audit.ActionLoginSuccess,
		Timestamp: time.Now().UTC(),
	}
	if err := s.auditSvc.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to record login event: %w", err)
	}
	s.alertEngine.Evaluate(ctx, event)
	return nil
}

// SubmitRequest creates an access request and runs it through the
// policy engine. A matching policy decides the request immediately;
// otherwise it stays pending for manual review. Risk scoring happens
// in the background and never delays the response.
func (s *AccessService) SubmitRequest(ctx context.Context, userID, documentID, note, source string) (*model.AccessRequest, error) {
	pending, err := s.requestDAO.HasPendingRequest(ctx, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, doc_errors.ErrRequestPending
	}

	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	doc, err := s.documentDAO.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	request := &model.AccessRequest{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		Note:       note,
		Status:     model.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.validationUtil.ValidateAccessRequest(*request); err != nil {
		return nil, fmt.Errorf("invalid access request: %w", err)
	}
	if err := s.requestDAO.CreateRequest(ctx, request); err != nil {
		logger.Error("Error creating access request", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to create access request: %w", err)
	}

	features := pdp_model.BuildFeatures(*user, *doc, note)
	decision, err := s.evaluator.Evaluate(ctx, features)
	if err != nil {
		// The request survives an evaluation failure as pending.
		logger.Error("Policy evaluation failed, request left pending",
			zap.Error(err), zap.String("requestID", request.ID))
		decision = nil
	}

	if decision != nil {
		status := model.StatusDenied
		if decision.Action == model.ActionApprove {
			status = model.StatusApproved
		}
		now := time.Now().UTC()
		if err := s.requestDAO.SetDecision(ctx, request.ID, status, decision.Reason, AutoDecider, now); err != nil {
			logger.Error("Failed to apply automatic decision",
				zap.Error(err), zap.String("requestID", request.ID))
		} else {
			request.Status = status
			request.Response = decision.Reason
			request.DecidedBy = AutoDecider
			request.DecidedAt = &now

			s.appendRequestAudit(ctx, userID, source, audit.ActionRequestDecided, request.ID)
			if err := s.notificationSvc.NotifyRequestDecision(ctx, *request); err != nil {
				logger.Warn("Failed to send decision notification",
					zap.Error(err), zap.String("requestID", request.ID))
			}
			logger.Info("Request decided automatically",
				zap.String("requestID", request.ID),
				zap.String("policyID", decision.PolicyID),
				zap.String("status", string(status)))
		}
	} else {
		s.appendRequestAudit(ctx, userID, source, audit.ActionRequestCreated, request.ID)
		logger.Info("Request pending manual review", zap.String("requestID", request.ID))
	}

	s.scoreInBackground(ctx, request.ID)
	s.eventBus.Publish(ctx, "request.submitted", *request)

	return request, nil
}

// DecideRequest applies a manual decision to a pending request.
func (s *AccessService) DecideRequest(ctx context.Context, requestID string, approve bool, response, decidedBy string) (*model.AccessRequest, error) {
	status := model.StatusDenied
	if approve {
		status = model.StatusApproved
	}

	now := time.Now().UTC()
	if err := s.requestDAO.SetDecision(ctx, requestID, status, response, decidedBy, now); err != nil {
		if errors.Is(err, doc_errors.ErrRequestNotFound) || errors.Is(err, doc_errors.ErrRequestDecided) {
			return nil, err
		}
		logger.Error("Error deciding request", zap.Error(err), zap.String("requestID", requestID))
		return nil, fmt.Errorf("failed to decide request: %w", err)
	}

	request, err := s.requestDAO.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.appendRequestAudit(ctx, decidedBy, "", audit.ActionRequestDecided, requestID)
	if err := s.notificationSvc.NotifyRequestDecision(ctx, *request); err != nil {
		logger.Warn("Failed to send decision notification",
			zap.Error(err), zap.String("requestID", requestID))
	}

	logger.Info("Request decided manually",
		zap.String("requestID", requestID),
		zap.String("decidedBy", decidedBy),
		zap.String("status", string(status)))
	return request, nil
}

// GetRequest retrieves an access request by ID.
func (s *AccessService) GetRequest(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	request, err := s.requestDAO.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, doc_errors.ErrRequestNotFound) {
			return nil, err
		}
		logger.Error("Error retrieving request", zap.Error(err), zap.String("requestID", requestID))
		return nil, doc_errors.ErrInternalServer
	}
	return request, nil
}

// HighRiskRequests lists pending requests at or above the high-risk
// threshold, highest score first.
func (s *AccessService) HighRiskRequests(ctx context.Context, limit int) ([]*model.AccessRequest, error) {
	return s.scorer.HighRisk(ctx, limit)
}

// RiskOverview summarizes risk scoring across analyzed requests.
type RiskOverview struct {
	AverageScore float64 `json:"average_score"`
	Analyzed     int     `json:"analyzed"`
	HighRisk     int     `json:"high_risk"`
	MediumRisk   int     `json:"medium_risk"`
	LowRisk      int     `json:"low_risk"`
	Pending      int     `json:"pending_requests"`
}

func (s *AccessService) RiskStats(ctx context.Context) (*RiskOverview, error) {
	avg, total, high, medium, low, err := s.requestDAO.RiskStats(ctx)
	if err != nil {
		logger.Error("Error computing risk stats", zap.Error(err))
		return nil, fmt.Errorf("failed to compute risk stats: %w", err)
	}
	pending, err := s.requestDAO.CountByStatus(ctx, "", model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}
	return &RiskOverview{
		AverageScore: avg,
		Analyzed:     total,
		HighRisk:     high,
		MediumRisk:   medium,
		LowRisk:      low,
		Pending:      pending,
	}, nil
}

// scoreInBackground launches the risk scorer detached from the request
// lifecycle. A scoring failure leaves the score unset and is already
// logged inside the scorer.
func (s *AccessService) scoreInBackground(ctx context.Context, requestID string) {
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.scorer.Score(bgCtx, requestID); err != nil {
			logger.Warn("Background risk scoring failed",
				zap.Error(err), zap.String("requestID", requestID))
		}
	}()
}

func (s *AccessService) appendRequestAudit(ctx context.Context, userID, source, action, requestID string) {
	event := audit.Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Source:     normalizeSource(source),
		Action:     action,
		ObjectType: "access_request",
		ObjectID:   requestID,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.auditSvc.Append(ctx, event); err != nil {
		logger.Error("Failed to append request audit event",
			zap.Error(err), zap.String("action", action), zap.String("requestID", requestID))
	}
}

func normalizeSource(source string) string {
	if source == "" {
		return audit.SourceUnknown
	}
	return source
}
