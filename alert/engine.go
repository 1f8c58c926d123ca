// Package alert evaluates anomaly rules against the audit event stream
// and raises deduplicated security alerts.
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestore-cpu/gestione-doc-security/audit"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/metrics"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

// AlertStore persists alerts with the dedup-or-create semantics.
type AlertStore interface {
	CreateOrReuse(ctx context.Context, alert *model.SecurityAlert, dedupWindow time.Duration) (*model.SecurityAlert, bool, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	AdminEmails(ctx context.Context) ([]string, error)
}

type DocumentStore interface {
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
}

// Notifier delivers operator notifications. The engine only decides that
// a notification is warranted, not how it travels.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, body string) error
}

// Config carries the rule thresholds.
type Config struct {
	BurstThreshold    int
	BurstWindow       time.Duration
	DedupWindow       time.Duration
	NewSourceLookback time.Duration
}

// Engine runs the anomaly rules synchronously on audit-event append.
// Rules are independent: each failure is contained, logged and treated
// as "rule did not fire".
type Engine struct {
	audit     audit.Service
	alerts    AlertStore
	users     UserStore
	documents DocumentStore
	notifier  Notifier
	cfg       Config
	now       func() time.Time
}

func NewEngine(auditSvc audit.Service, alerts AlertStore, users UserStore, documents DocumentStore, notifier Notifier, cfg Config) *Engine {
	if cfg.BurstThreshold <= 0 {
		cfg.BurstThreshold = 10
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = 5 * time.Minute
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 10 * time.Minute
	}
	if cfg.NewSourceLookback <= 0 {
		cfg.NewSourceLookback = 90 * 24 * time.Hour
	}
	return &Engine{
		audit:     auditSvc,
		alerts:    alerts,
		users:     users,
		documents: documents,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock replaces the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Evaluate runs every rule against the event and returns the IDs of the
// rules that fired, whether the alert was created or reused.
func (e *Engine) Evaluate(ctx context.Context, event audit.Event) []string {
	if event.UserID == "" {
		return nil
	}

	var fired []string

	for _, rule := range []struct {
		id    string
		check func(context.Context, audit.Event) (bool, error)
	}{
		{model.RuleBurstDownloads, e.checkBurstDownloads},
		{model.RuleNewSourceAccess, e.checkNewSourceAccess},
		{model.RuleCrossScope, e.checkCrossScopeAccess},
	} {
		hit, err := rule.check(ctx, event)
		if err != nil {
			logger.Error("Alert rule evaluation failed",
				zap.String("rule", rule.id),
				zap.String("userID", event.UserID),
				zap.Error(err))
			continue
		}
		if hit {
			fired = append(fired, rule.id)
		}
	}

	if len(fired) > 0 {
		logger.Info("Alert rules fired",
			zap.String("userID", event.UserID),
			zap.Strings("rules", fired))
	}
	return fired
}

// checkBurstDownloads fires when the user's download/view count within
// the trailing window reaches the threshold.
func (e *Engine) checkBurstDownloads(ctx context.Context, event audit.Event) (bool, error) {
	if event.Action != audit.ActionDownloadSuccess && event.Action != audit.ActionViewSuccess {
		return false, nil
	}

	windowStart := e.now().Add(-e.cfg.BurstWindow)
	count, err := e.audit.CountActions(ctx, event.UserID,
		[]string{audit.ActionDownloadSuccess, audit.ActionViewSuccess}, windowStart)
	if err != nil {
		return false, fmt.Errorf("failed to count recent downloads: %w", err)
	}

	if count < e.cfg.BurstThreshold {
		return false, nil
	}

	details := fmt.Sprintf(
		"Utente ha effettuato %d download/visualizzazioni negli ultimi %d minuti (soglia: %d)",
		count, int(e.cfg.BurstWindow.Minutes()), e.cfg.BurstThreshold)

	return e.raise(ctx, event.UserID, model.RuleBurstDownloads, model.SeverityMedium, details)
}

// checkNewSourceAccess fires when the event's source identifier has not
// appeared in the user's history within the lookback period. An unknown
// source never fires; missing proxy headers are not an anomaly.
func (e *Engine) checkNewSourceAccess(ctx context.Context, event audit.Event) (bool, error) {
	switch event.Action {
	case audit.ActionDownloadSuccess, audit.ActionViewSuccess, audit.ActionLoginSuccess:
	default:
		return false, nil
	}

	if event.Source == "" || event.Source == audit.SourceUnknown {
		return false, nil
	}

	// The event under evaluation is already appended; the exclusive
	// upper bound keeps it from counting as its own history.
	since := e.now().Add(-e.cfg.NewSourceLookback)
	known, err := e.audit.KnownSource(ctx, event.UserID, event.Source, since, event.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to check source history: %w", err)
	}
	if known {
		return false, nil
	}

	details := fmt.Sprintf("Accesso da nuova origine %s", event.Source)
	return e.raise(ctx, event.UserID, model.RuleNewSourceAccess, model.SeverityLow, details)
}

// checkCrossScopeAccess fires when a non-admin reads a non-public
// document whose departments are disjoint from the user's memberships.
func (e *Engine) checkCrossScopeAccess(ctx context.Context, event audit.Event) (bool, error) {
	if event.Action != audit.ActionDownloadSuccess && event.Action != audit.ActionViewSuccess {
		return false, nil
	}
	if event.ObjectID == "" || event.ObjectType != "document" {
		return false, nil
	}

	user, err := e.users.GetUser(ctx, event.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsAdmin() {
		return false, nil
	}

	doc, err := e.documents.GetDocument(ctx, event.ObjectID)
	if err != nil {
		return false, fmt.Errorf("failed to load document: %w", err)
	}
	if doc.IsPublic() {
		return false, nil
	}

	docDepartments := doc.Departments()
	if len(docDepartments) == 0 {
		// Untagged documents are invisible rather than cross-scope.
		return false, nil
	}
	if model.IntersectDepartments(docDepartments, user.DepartmentNames()) {
		return false, nil
	}

	userDepts := strings.Join(user.DepartmentNames(), ", ")
	if userDepts == "" {
		userDepts = "Nessuno"
	}
	details := fmt.Sprintf(
		"Accesso a documento del reparto '%s' da utente del reparto '%s'",
		strings.Join(docDepartments, ", "), userDepts)

	return e.raise(ctx, event.UserID, model.RuleCrossScope, model.SeverityHigh, details)
}

// raise creates (or reuses) the alert and, for high severity, asks the
// notifier to reach the administrators. Notification failure never
// withdraws the alert.
func (e *Engine) raise(ctx context.Context, userID, ruleID string, severity model.Severity, details string) (bool, error) {
	alert := &model.SecurityAlert{
		ID:        uuid.NewString(),
		UserID:    userID,
		RuleID:    ruleID,
		Severity:  severity,
		Details:   details,
		Status:    model.AlertOpen,
		CreatedAt: e.now().UTC(),
	}

	stored, created, err := e.alerts.CreateOrReuse(ctx, alert, e.cfg.DedupWindow)
	if err != nil {
		return false, fmt.Errorf("failed to store alert: %w", err)
	}
	if !created {
		logger.Info("Duplicate alert suppressed",
			zap.String("rule", ruleID),
			zap.String("userID", userID),
			zap.String("existingAlertID", stored.ID))
		return true, nil
	}

	logger.Warn("Security alert created",
		zap.String("alertID", stored.ID),
		zap.String("rule", ruleID),
		zap.String("severity", string(severity)),
		zap.String("userID", userID))
	metrics.AlertsCreated.WithLabelValues(ruleID, string(severity)).Inc()

	if severity == model.SeverityHigh {
		e.notifyAdmins(ctx, stored)
	}
	return true, nil
}

func (e *Engine) notifyAdmins(ctx context.Context, alert *model.SecurityAlert) {
	recipients, err := e.users.AdminEmails(ctx)
	if err != nil {
		logger.Error("Failed to resolve alert recipients", zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		logger.Warn("No administrators found for alert notification",
			zap.String("alertID", alert.ID))
		return
	}

	subject := fmt.Sprintf("Security Alert - %s (Severity: %s)",
		alert.RuleID, strings.ToUpper(string(alert.Severity)))
	body := fmt.Sprintf(
		"Rule: %s\nSeverity: %s\nUser: %s\nTimestamp: %s\n\n%s",
		alert.RuleID, alert.Severity, alert.UserID,
		alert.CreatedAt.Format(time.RFC3339), alert.Details)

	if err := e.notifier.Notify(ctx, recipients, subject, body); err != nil {
		logger.Error("Alert notification failed",
			zap.String("alertID", alert.ID),
			zap.Error(err))
	}
}
