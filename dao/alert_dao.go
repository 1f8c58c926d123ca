package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gestore-cpu/gestione-doc-security/db"
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

type AlertDAO struct {
	DB *sql.DB
}

func NewAlertDAO(sqlDB *sql.DB) *AlertDAO {
	return &AlertDAO{DB: sqlDB}
}

const alertColumns = `id, user_id, rule_id, severity, details, status,
	COALESCE(closed_by, ''), COALESCE(close_note, ''), created_at`

// CreateOrReuse creates the alert unless an open alert for the same
// (user, rule) pair exists within the dedup window, in which case that
// alert is returned. The check-then-insert runs under a per-(user, rule)
// advisory lock so near-simultaneous duplicate events cannot create two
// open alerts.
func (dao *AlertDAO) CreateOrReuse(ctx context.Context, alert *model.SecurityAlert, dedupWindow time.Duration) (*model.SecurityAlert, bool, error) {
	var result *model.SecurityAlert
	var created bool

	err := db.WithTransaction(ctx, dao.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`,
			alert.UserID+"|"+alert.RuleID,
		); err != nil {
			return fmt.Errorf("failed to acquire alert lock: %w", err)
		}

		cutoff := alert.CreatedAt.Add(-dedupWindow)
		row := tx.QueryRowContext(ctx, `
			SELECT `+alertColumns+` FROM security_alerts
			WHERE user_id = $1 AND rule_id = $2 AND status = 'open' AND created_at >= $3
			ORDER BY created_at DESC
			LIMIT 1`,
			alert.UserID, alert.RuleID, cutoff,
		)

		existing, err := scanAlert(row)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check for duplicate alert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO security_alerts (id, user_id, rule_id, severity, details, status, created_at)
			VALUES ($1, $2, $3, $4, $5, 'open', $6)`,
			alert.ID, alert.UserID, alert.RuleID, alert.Severity, alert.Details, alert.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}

		alert.Status = model.AlertOpen
		result = alert
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// GetAlert fetches a single alert by ID.
func (dao *AlertDAO) GetAlert(ctx context.Context, alertID string) (*model.SecurityAlert, error) {
	row := dao.DB.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM security_alerts WHERE id = $1`, alertID)

	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, doc_errors.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alert: %w", err)
	}
	return alert, nil
}

// GetOpenAlerts returns open alerts, newest first, optionally narrowed by
// severity and user.
func (dao *AlertDAO) GetOpenAlerts(ctx context.Context, severity model.Severity, userID string, limit int) ([]*model.SecurityAlert, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM security_alerts
		WHERE status = 'open'
		  AND ($1 = '' OR severity = $1)
		  AND ($2 = '' OR user_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`,
		string(severity), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query open alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.SecurityAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// Close transitions an open alert to closed.
func (dao *AlertDAO) Close(ctx context.Context, alertID, closedBy, note string) error {
	var affected int64
	err := db.WithTransaction(ctx, dao.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE security_alerts
			SET status = 'closed', closed_by = $2, close_note = $3
			WHERE id = $1 AND status = 'open'`,
			alertID, closedBy, note,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to close alert: %w", err)
	}
	if affected == 0 {
		if _, err := dao.GetAlert(ctx, alertID); err != nil {
			return err
		}
		return doc_errors.ErrAlertAlreadyClosed
	}
	return nil
}

// Stats aggregates alerts over a trailing window.
func (dao *AlertDAO) Stats(ctx context.Context, since time.Time) (*model.AlertStats, error) {
	stats := &model.AlertStats{
		BySeverity: map[string]int{},
		ByRule:     map[string]int{},
	}

	err := dao.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'open')
		FROM security_alerts
		WHERE created_at >= $1`, since).Scan(&stats.TotalAlerts, &stats.OpenAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	stats.ClosedAlerts = stats.TotalAlerts - stats.OpenAlerts

	rows, err := dao.DB.QueryContext(ctx, `
		SELECT severity, rule_id, COUNT(*)
		FROM security_alerts
		WHERE created_at >= $1
		GROUP BY severity, rule_id`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var severity, ruleID string
		var count int
		if err := rows.Scan(&severity, &ruleID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan alert aggregate: %w", err)
		}
		stats.BySeverity[severity] += count
		stats.ByRule[ruleID] += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	best := 0
	for ruleID, count := range stats.ByRule {
		if count > best || (count == best && stats.MostTriggeredRule > ruleID) {
			best = count
			stats.MostTriggeredRule = ruleID
		}
	}

	return stats, nil
}

func scanAlert(row rowScanner) (*model.SecurityAlert, error) {
	var alert model.SecurityAlert
	if err := row.Scan(
		&alert.ID, &alert.UserID, &alert.RuleID, &alert.Severity,
		&alert.Details, &alert.Status, &alert.ClosedBy, &alert.CloseNote,
		&alert.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}
