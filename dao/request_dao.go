package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gestore-cpu/gestione-doc-security/db"
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

type RequestDAO struct {
	DB *sql.DB
}

func NewRequestDAO(sqlDB *sql.DB) *RequestDAO {
	return &RequestDAO{DB: sqlDB}
}

const requestColumns = `id, user_id, document_id, COALESCE(note, ''), status,
	risk_score, risk_factors, COALESCE(response, ''), COALESCE(decided_by, ''),
	decided_at, created_at`

// CreateRequest inserts a new pending request.
func (dao *RequestDAO) CreateRequest(ctx context.Context, request *model.AccessRequest) error {
	err := db.WithTransaction(ctx, dao.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO access_requests (id, user_id, document_id, note, status, created_at)
			VALUES ($1, $2, $3, $4, 'pending', $5)`,
			request.ID, request.UserID, request.DocumentID, request.Note, request.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert access request: %w", err)
	}
	return nil
}

// GetRequest fetches a single request by ID.
func (dao *RequestDAO) GetRequest(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	row := dao.DB.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM access_requests WHERE id = $1`, requestID)

	request, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, doc_errors.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access request: %w", err)
	}
	return request, nil
}

// HasPendingRequest reports whether the user already has a pending
// request for the document.
func (dao *RequestDAO) HasPendingRequest(ctx context.Context, userID, documentID string) (bool, error) {
	var exists bool
	err := dao.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_requests
			WHERE user_id = $1 AND document_id = $2 AND status = 'pending'
		)`, userID, documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return exists, nil
}

// SetDecision moves a pending request to its terminal state. Requests
// already decided are left untouched.
func (dao *RequestDAO) SetDecision(ctx context.Context, requestID string, status model.RequestStatus, response, decidedBy string, decidedAt time.Time) error {
	if status != model.StatusApproved && status != model.StatusDenied {
		return fmt.Errorf("decision status must be terminal, got %q", status)
	}

	var affected int64
	err := db.WithTransaction(ctx, dao.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE access_requests
			SET status = $2, response = $3, decided_by = $4, decided_at = $5
			WHERE id = $1 AND status = 'pending'`,
			requestID, status, response, decidedBy, decidedAt,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	if affected == 0 {
		// Either unknown or already decided; disambiguate for the caller.
		if _, err := dao.GetRequest(ctx, requestID); err != nil {
			return err
		}
		return doc_errors.ErrRequestDecided
	}
	return nil
}

// AttachRisk persists the risk annotation without touching the status.
func (dao *RequestDAO) AttachRisk(ctx context.Context, requestID string, report *model.RiskReport) error {
	factors, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal risk report: %w", err)
	}

	var affected int64
	err = db.WithTransaction(ctx, dao.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE access_requests
			SET risk_score = $2, risk_factors = $3
			WHERE id = $1`,
			requestID, report.Score, factors,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to attach risk score: %w", err)
	}
	if affected == 0 {
		return doc_errors.ErrRequestNotFound
	}
	return nil
}

// HighRisk returns pending requests with a score at or above the
// threshold, highest score first.
func (dao *RequestDAO) HighRisk(ctx context.Context, threshold, limit int) ([]*model.AccessRequest, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM access_requests
		WHERE risk_score >= $1 AND status = 'pending'
		ORDER BY risk_score DESC
		LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query high risk requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.AccessRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// CountByStatus counts the user's requests with the given status; an
// empty status counts them all. Feeds the risk feature set.
func (dao *RequestDAO) CountByStatus(ctx context.Context, userID string, status model.RequestStatus) (int, error) {
	var count int
	var err error
	if status == "" {
		err = dao.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM access_requests WHERE user_id = $1`, userID).Scan(&count)
	} else {
		err = dao.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM access_requests WHERE user_id = $1 AND status = $2`,
			userID, status).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

// RiskStats aggregates scored requests into the reviewer-facing buckets.
func (dao *RequestDAO) RiskStats(ctx context.Context) (avg float64, total, high, medium, low int, err error) {
	err = dao.DB.QueryRowContext(ctx, `
		SELECT
			COALESCE(AVG(risk_score), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE risk_score >= 70),
			COUNT(*) FILTER (WHERE risk_score BETWEEN 40 AND 69),
			COUNT(*) FILTER (WHERE risk_score < 40)
		FROM access_requests
		WHERE risk_score IS NOT NULL`).Scan(&avg, &total, &high, &medium, &low)
	if err != nil {
		err = fmt.Errorf("failed to aggregate risk statistics: %w", err)
	}
	return
}

func scanRequest(row rowScanner) (*model.AccessRequest, error) {
	var request model.AccessRequest
	var score sql.NullInt64
	var factors []byte
	var decidedAt sql.NullTime
	if err := row.Scan(
		&request.ID, &request.UserID, &request.DocumentID, &request.Note,
		&request.Status, &score, &factors, &request.Response,
		&request.DecidedBy, &decidedAt, &request.CreatedAt,
	); err != nil {
		return nil, err
	}
	if score.Valid {
		s := int(score.Int64)
		request.RiskScore = &s
	}
	if len(factors) > 0 {
		var report model.RiskReport
		if err := json.Unmarshal(factors, &report); err == nil {
			request.RiskFactors = &report
		}
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		request.DecidedAt = &t
	}
	return &request, nil
}
