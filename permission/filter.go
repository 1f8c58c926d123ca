// Package permission computes which documents a user may see. The filter
// is a pure read: company membership must match the document's owning
// company exactly, and the user's departments must intersect the
// document's department tag set. Administrative roles and public
// documents bypass scoping entirely.
package permission

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

// DocumentReader is the slice of the document store the filter needs.
type DocumentReader interface {
	ListAll(ctx context.Context, limit, offset int) ([]model.Document, error)
	ListByCompanyNames(ctx context.Context, names []string, limit, offset int) ([]model.Document, error)
	ListPublic(ctx context.Context, limit, offset int) ([]model.Document, error)
}

type Filter struct {
	documents DocumentReader
}

func NewFilter(documents DocumentReader) *Filter {
	return &Filter{documents: documents}
}

// VisibleDocuments returns the documents the user may see, newest first.
// Admins see everything; other users see public documents plus documents
// matching both their company and department memberships. A document with
// an empty department tag set is visible to nobody but admins.
func (f *Filter) VisibleDocuments(ctx context.Context, user model.User, limit, offset int) ([]model.Document, error) {
	if user.IsAdmin() {
		return f.documents.ListAll(ctx, limit, offset)
	}

	candidates, err := f.documents.ListByCompanyNames(ctx, user.CompanyNames(), limit, offset)
	if err != nil {
		return nil, err
	}

	visible := make([]model.Document, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	departments := user.DepartmentNames()
	for _, doc := range candidates {
		if doc.IsPublic() || model.IntersectDepartments(doc.Departments(), departments) {
			visible = append(visible, doc)
			seen[doc.ID] = struct{}{}
		}
	}

	// Public documents are exempt from scoping even outside the user's
	// companies.
	public, err := f.documents.ListPublic(ctx, limit, offset)
	if err != nil {
		// The company-scoped result is still correct; log and return it.
		logger.Warn("Failed to list public documents", zap.Error(err))
		return visible, nil
	}
	for _, doc := range public {
		if _, dup := seen[doc.ID]; !dup {
			visible = append(visible, doc)
		}
	}

	return visible, nil
}

// CanView reports whether a single document is visible to the user.
func (f *Filter) CanView(user model.User, doc model.Document) bool {
	if user.IsAdmin() || doc.IsPublic() {
		return true
	}

	companyMatch := false
	for _, name := range user.CompanyNames() {
		if name == doc.CompanyName {
			companyMatch = true
			break
		}
	}
	if !companyMatch {
		return false
	}

	return model.IntersectDepartments(doc.Departments(), user.DepartmentNames())
}
