package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gestore-cpu/gestione-doc-security/db"
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

type PolicyDAO struct {
	DB *sql.DB
}

func NewPolicyDAO(sqlDB *sql.DB) *PolicyDAO {
	return &PolicyDAO{DB: sqlDB}
}

const policyColumns = `id, name, description, condition, action, priority, active,
	created_by, COALESCE(approved_by, ''), approved_at, created_at, updated_at`

// CreatePolicy inserts a policy. New policies are created inactive and
// require an explicit activation.
func (dao *PolicyDAO) CreatePolicy(ctx context.Context, policy *model.AutoPolicy) error {
	err := db.WithTransaction(ctx, dao.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO auto_policies
				(id, name, description, condition, action, priority, active, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $8)`,
			policy.ID, policy.Name, policy.Description, policy.RawCondition,
			policy.Action, policy.Priority, policy.CreatedBy, policy.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

// GetPolicy fetches a single policy by ID.
func (dao *PolicyDAO) GetPolicy(ctx context.Context, policyID string) (*model.AutoPolicy, error) {
	row := dao.DB.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM auto_policies WHERE id = $1`, policyID)

	policy, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, doc_errors.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch policy: %w", err)
	}
	return policy, nil
}

// GetActivePolicies returns the active policy set in evaluation order:
// priority ascending, ties broken by ID ascending for determinism.
func (dao *PolicyDAO) GetActivePolicies(ctx context.Context) ([]*model.AutoPolicy, error) {
	rows, err := dao.DB.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM auto_policies
		 WHERE active = true
		 ORDER BY priority ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active policies: %w", err)
	}
	defer rows.Close()

	var policies []*model.AutoPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

// ListPolicies returns policies ordered by priority, newest first within
// the same priority.
func (dao *PolicyDAO) ListPolicies(ctx context.Context, limit, offset int) ([]*model.AutoPolicy, error) {
	rows, err := dao.DB.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM auto_policies
		 ORDER BY priority ASC, created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*model.AutoPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

// SetActivation flips the active flag and stamps or clears the approval
// metadata in the same transaction.
func (dao *PolicyDAO) SetActivation(ctx context.Context, policyID string, active bool, approvedBy string, approvedAt *time.Time) error {
	var affected int64
	err := db.WithTransaction(ctx, dao.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE auto_policies
			SET active = $2, approved_by = NULLIF($3, ''), approved_at = $4, updated_at = NOW()
			WHERE id = $1`,
			policyID, active, approvedBy, approvedAt,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update policy activation: %w", err)
	}
	if affected == 0 {
		return doc_errors.ErrPolicyNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*model.AutoPolicy, error) {
	var policy model.AutoPolicy
	var approvedAt sql.NullTime
	if err := row.Scan(
		&policy.ID, &policy.Name, &policy.Description, &policy.RawCondition,
		&policy.Action, &policy.Priority, &policy.Active,
		&policy.CreatedBy, &policy.ApprovedBy, &approvedAt,
		&policy.CreatedAt, &policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		policy.ApprovedAt = &t
	}

	// Parse the condition once at load. A malformed condition leaves
	// Condition nil; the evaluator logs and skips such policies.
	cond, err := model.ParseCondition([]byte(policy.RawCondition))
	if err != nil {
		logger.Warn("Policy has malformed condition",
			zap.String("policyID", policy.ID),
			zap.Error(err))
	} else {
		policy.Condition = cond
	}

	return &policy, nil
}
