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
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

// IAlertService defines the interface for alert operations
type IAlertService interface {
	GetAlert(ctx context.Context, alertID string) (*model.SecurityAlert, error)
	OpenAlerts(ctx context.Context, severity model.Severity, userID string, limit int) ([]*model.SecurityAlert, error)
	CloseAlert(ctx context.Context, alertID, closedBy, note string) (*model.SecurityAlert, error)
	Stats(ctx context.Context, days int) (*model.AlertStats, error)
}

// AlertService is the admin-facing surface over security alerts.
type AlertService struct {
	alertDAO *dao.AlertDAO
	auditSvc audit.Service
}

func NewAlertService(alertDAO *dao.AlertDAO, auditSvc audit.Service) *AlertService {
	return &AlertService{
		alertDAO: alertDAO,
		auditSvc: auditSvc,
	}
}

// GetAlert retrieves an alert by ID.
func (s *AlertService) GetAlert(ctx context.Context, alertID string) (*model.SecurityAlert, error) {
	alert, err := s.alertDAO.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, doc_errors.ErrAlertNotFound) {
			return nil, err
		}
		logger.Error("Error retrieving alert", zap.Error(err), zap.String("alertID", alertID))
		return nil, doc_errors.ErrInternalServer
	}
	return alert, nil
}

// OpenAlerts lists open alerts, optionally filtered by severity and user.
func (s *AlertService) OpenAlerts(ctx context.Context, severity model.Severity, userID string, limit int) ([]*model.SecurityAlert, error) {
	alerts, err := s.alertDAO.GetOpenAlerts(ctx, severity, userID, limit)
	if err != nil {
		logger.Error("Error listing open alerts", zap.Error(err))
		return nil, fmt.Errorf("failed to list open alerts: %w", err)
	}
	return alerts, nil
}

// CloseAlert moves an open alert to closed, recording who closed it and
// why. Closing an already closed alert is an error.
func (s *AlertService) CloseAlert(ctx context.Context, alertID, closedBy, note string) (*model.SecurityAlert, error) {
	if err := s.alertDAO.Close(ctx, alertID, closedBy, note); err != nil {
		if errors.Is(err, doc_errors.ErrAlertNotFound) || errors.Is(err, doc_errors.ErrAlertAlreadyClosed) {
			return nil, err
		}
		logger.Error("Error closing alert", zap.Error(err), zap.String("alertID", alertID))
		return nil, fmt.Errorf("failed to close alert: %w", err)
	}

	event := audit.Event{
		ID:         uuid.NewString(),
		UserID:     closedBy,
		Source:     audit.SourceUnknown,
		Action:     audit.ActionAlertClosed,
		ObjectType: "security_alert",
		ObjectID:   alertID,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.auditSvc.Append(ctx, event); err != nil {
		logger.Error("Failed to append alert audit event",
			zap.Error(err), zap.String("alertID", alertID))
	}

	logger.Info("Alert closed",
		zap.String("alertID", alertID),
		zap.String("closedBy", closedBy))
	return s.alertDAO.GetAlert(ctx, alertID)
}

// Stats summarizes alert activity over the trailing number of days.
func (s *AlertService) Stats(ctx context.Context, days int) (*model.AlertStats, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := s.alertDAO.Stats(ctx, since)
	if err != nil {
		logger.Error("Error computing alert stats", zap.Error(err))
		return nil, fmt.Errorf("failed to compute alert stats: %w", err)
	}
	stats.PeriodDays = days
	return stats, nil
}
