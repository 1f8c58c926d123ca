package model

import (
	"time"

	"github.com/gestore-cpu/gestione-doc-security/model"
)

// Features is the closed, typed feature set a policy condition may
// reference. It is resolved once per evaluation from the request, user
// and document; conditions cannot reach into arbitrary request data.
type Features struct {
	UserID             string
	UserRole           string
	UserCompany        string
	UserDepartment     string
	DocumentCompany    string
	DocumentDepartment string
	DocumentName       string
	DocumentTags       []string
	Note               string
}

// BuildFeatures resolves the feature set for an access request. Where the
// user or document carries several companies or departments, the first
// membership is the scalar feature value and the full tag set is exposed
// as document_tags, mirroring how the administrators author conditions.
func BuildFeatures(user model.User, doc model.Document, note string) Features {
	f := Features{
		UserID:          user.ID,
		UserRole:        string(user.Role),
		DocumentCompany: doc.CompanyName,
		DocumentName:    doc.Title,
		DocumentTags:    doc.Departments(),
		Note:            note,
	}
	if companies := user.CompanyNames(); len(companies) > 0 {
		f.UserCompany = companies[0]
	}
	if departments := user.DepartmentNames(); len(departments) > 0 {
		f.UserDepartment = departments[0]
	}
	if tags := f.DocumentTags; len(tags) > 0 {
		f.DocumentDepartment = tags[0]
	}
	return f
}

// Lookup resolves a condition field name. The second return is false for
// names outside the closed key set. document_tags is the only
// list-valued feature.
func (f Features) Lookup(key string) (any, bool) {
	switch key {
	case "user_id":
		return f.UserID, true
	case "user_role":
		return f.UserRole, true
	case "user_company":
		return f.UserCompany, true
	case "user_department":
		return f.UserDepartment, true
	case "document_company":
		return f.DocumentCompany, true
	case "document_department":
		return f.DocumentDepartment, true
	case "document_name":
		return f.DocumentName, true
	case "document_tags":
		return f.DocumentTags, true
	case "note":
		return f.Note, true
	default:
		return nil, false
	}
}

// EvaluationContext carries evaluation metadata alongside the features.
type EvaluationContext struct {
	RequestID   string
	Features    Features
	EvaluatedAt time.Time
}
