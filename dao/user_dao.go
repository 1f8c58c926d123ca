package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

type UserDAO struct {
	DB *sql.DB
}

func NewUserDAO(sqlDB *sql.DB) *UserDAO {
	return &UserDAO{DB: sqlDB}
}

// GetUser loads a user together with their company and department
// memberships.
func (dao *UserDAO) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := dao.DB.QueryRowContext(ctx,
		`SELECT id, username, email, role, created_at FROM users WHERE id = $1`, userID,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, doc_errors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	user.Companies, err = dao.userCompanies(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Departments, err = dao.userDepartments(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (dao *UserDAO) userCompanies(ctx context.Context, userID string) ([]model.Company, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT c.id, c.name
		FROM companies c
		JOIN user_companies uc ON uc.company_id = c.id
		WHERE uc.user_id = $1
		ORDER BY c.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (dao *UserDAO) userDepartments(ctx context.Context, userID string) ([]model.Department, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT d.id, d.name, d.company_id
		FROM departments d
		JOIN user_departments ud ON ud.department_id = d.id
		WHERE ud.user_id = $1
		ORDER BY d.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user departments: %w", err)
	}
	defer rows.Close()

	var departments []model.Department
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CompanyID); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// AdminEmails returns the addresses of every administrative user, used as
// the recipient list for high-severity alert notifications.
func (dao *UserDAO) AdminEmails(ctx context.Context) ([]string, error) {
	rows, err := dao.DB.QueryContext(ctx,
		`SELECT email FROM users WHERE role IN ('admin', 'superadmin') ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch admin emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
