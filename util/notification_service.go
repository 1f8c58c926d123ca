package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

type NotificationService struct {
	// Dependencies for a real delivery channel (SMTP client, message
	// queue) would be injected here.
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// Notify delivers a message to the given recipients. The current
// implementation logs the delivery; the call sites only depend on the
// Notifier contract, so swapping in SMTP is a local change.
func (n *NotificationService) Notify(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients for notification %q", subject)
	}
	logger.Info("Sending notification",
		zap.Strings("recipients", recipients),
		zap.String("subject", subject),
		zap.Int("bodyLength", len(body)))
	return nil
}

func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType string, policy model.AutoPolicy) error {
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: New policy created",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	case "activated":
		logger.Info("NOTIFICATION: Policy activated",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name),
			zap.String("approvedBy", policy.ApprovedBy))
	case "deactivated":
		logger.Info("NOTIFICATION: Policy deactivated",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return nil
}

func (n *NotificationService) NotifyRequestDecision(ctx context.Context, request model.AccessRequest) error {
	logger.Info("NOTIFICATION: Access request decided",
		zap.String("requestID", request.ID),
		zap.String("userID", request.UserID),
		zap.String("status", string(request.Status)),
		zap.String("decidedBy", request.DecidedBy))
	return nil
}
