package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

type DocumentDAO struct {
	DB *sql.DB
}

func NewDocumentDAO(sqlDB *sql.DB) *DocumentDAO {
	return &DocumentDAO{DB: sqlDB}
}

const documentColumns = `d.id, d.title, d.company_id, c.name, d.department_tags,
	d.visibility, d.is_critical, d.expiry_date, d.created_at`

// GetDocument fetches a single document by ID.
func (dao *DocumentDAO) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	row := dao.DB.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		JOIN companies c ON c.id = d.company_id
		WHERE d.id = $1`, documentID)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, doc_errors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return doc, nil
}

// ListAll returns every document, newest first. Used for administrative
// listings; bounded by storage-layer pagination.
func (dao *DocumentDAO) ListAll(ctx context.Context, limit, offset int) ([]model.Document, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		JOIN companies c ON c.id = d.company_id
		ORDER BY d.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// ListByCompanyNames returns documents owned by any of the given
// companies, newest first. The permission filter narrows the department
// intersection in memory on top of this candidate set.
func (dao *DocumentDAO) ListByCompanyNames(ctx context.Context, names []string, limit, offset int) ([]model.Document, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		JOIN companies c ON c.id = d.company_id
		WHERE c.name = ANY($1)
		ORDER BY d.created_at DESC
		LIMIT $2 OFFSET $3`, names, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by company: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// ListPublic returns public documents, which are exempt from company and
// department scoping.
func (dao *DocumentDAO) ListPublic(ctx context.Context, limit, offset int) ([]model.Document, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		JOIN companies c ON c.id = d.company_id
		WHERE d.visibility = 'public'
		ORDER BY d.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list public documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	var expiry sql.NullTime
	if err := row.Scan(
		&doc.ID, &doc.Title, &doc.CompanyID, &doc.CompanyName,
		&doc.DepartmentTags, &doc.Visibility, &doc.IsCritical,
		&expiry, &doc.CreatedAt,
	); err != nil {
		return nil, err
	}
	if expiry.Valid {
		t := expiry.Time
		doc.ExpiryDate = &t
	}
	return &doc, nil
}
