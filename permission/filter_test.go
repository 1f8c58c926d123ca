package permission_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/permission"
)

type fakeDocumentStore struct {
	all       []model.Document
	public    []model.Document
	byCompany map[string][]model.Document
	publicErr error
}

func (s *fakeDocumentStore) ListAll(ctx context.Context, limit, offset int) ([]model.Document, error) {
	return s.all, nil
}

func (s *fakeDocumentStore) ListByCompanyNames(ctx context.Context, names []string, limit, offset int) ([]model.Document, error) {
	var out []model.Document
	for _, name := range names {
		out = append(out, s.byCompany[name]...)
	}
	return out, nil
}

func (s *fakeDocumentStore) ListPublic(ctx context.Context, limit, offset int) ([]model.Document, error) {
	if s.publicErr != nil {
		return nil, s.publicErr
	}
	return s.public, nil
}

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

func acmeHRUser(role model.Role) model.User {
	return model.User{
		ID:          "u1",
		Username:    "mario",
		Role:        role,
		Companies:   []model.Company{{ID: "c1", Name: "ACME"}},
		Departments: []model.Department{{ID: "d1", Name: "HR", CompanyID: "c1"}},
	}
}

func TestVisibleDocumentsAdminSeesEverything(t *testing.T) {
	store := &fakeDocumentStore{
		all: []model.Document{
			{ID: "doc1", CompanyName: "ACME", DepartmentTags: `["Finance"]`},
			{ID: "doc2", CompanyName: "Globex", DepartmentTags: `["Legal"]`},
		},
	}
	filter := permission.NewFilter(store)

	docs, err := filter.VisibleDocuments(context.Background(), acmeHRUser(model.RoleAdmin), 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestVisibleDocumentsScopesByCompanyAndDepartment(t *testing.T) {
	store := &fakeDocumentStore{
		byCompany: map[string][]model.Document{
			"ACME": {
				{ID: "doc1", CompanyName: "ACME", DepartmentTags: `["HR"]`, Visibility: model.VisibilityPrivate},
				{ID: "doc2", CompanyName: "ACME", DepartmentTags: `["Finance"]`, Visibility: model.VisibilityPrivate},
				{ID: "doc3", CompanyName: "ACME", DepartmentTags: ``, Visibility: model.VisibilityPrivate},
			},
		},
	}
	filter := permission.NewFilter(store)

	docs, err := filter.VisibleDocuments(context.Background(), acmeHRUser(model.RoleUser), 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc1", docs[0].ID)
}

func TestVisibleDocumentsIncludesForeignPublic(t *testing.T) {
	store := &fakeDocumentStore{
		byCompany: map[string][]model.Document{
			"ACME": {
				{ID: "doc1", CompanyName: "ACME", DepartmentTags: `["HR"]`, Visibility: model.VisibilityPrivate},
			},
		},
		public: []model.Document{
			{ID: "doc1", CompanyName: "ACME", Visibility: model.VisibilityPublic},
			{ID: "doc9", CompanyName: "Globex", Visibility: model.VisibilityPublic},
		},
	}
	filter := permission.NewFilter(store)

	docs, err := filter.VisibleDocuments(context.Background(), acmeHRUser(model.RoleGuest), 10, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []string{"doc1", "doc9"}, ids)
}

func TestVisibleDocumentsPublicListFailureKeepsScopedResult(t *testing.T) {
	store := &fakeDocumentStore{
		byCompany: map[string][]model.Document{
			"ACME": {
				{ID: "doc1", CompanyName: "ACME", DepartmentTags: `["HR"]`, Visibility: model.VisibilityPrivate},
			},
		},
		publicErr: errors.New("index unavailable"),
	}
	filter := permission.NewFilter(store)

	docs, err := filter.VisibleDocuments(context.Background(), acmeHRUser(model.RoleUser), 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc1", docs[0].ID)
}

func TestCanView(t *testing.T) {
	private := model.Document{ID: "doc1", CompanyName: "ACME", DepartmentTags: `["HR"]`, Visibility: model.VisibilityPrivate}
	foreign := model.Document{ID: "doc2", CompanyName: "Globex", DepartmentTags: `["HR"]`, Visibility: model.VisibilityPrivate}
	otherDept := model.Document{ID: "doc3", CompanyName: "ACME", DepartmentTags: `["Finance"]`, Visibility: model.VisibilityPrivate}
	untagged := model.Document{ID: "doc4", CompanyName: "ACME", DepartmentTags: ``, Visibility: model.VisibilityPrivate}
	public := model.Document{ID: "doc5", CompanyName: "Globex", Visibility: model.VisibilityPublic}

	filter := permission.NewFilter(&fakeDocumentStore{})
	user := acmeHRUser(model.RoleUser)
	admin := acmeHRUser(model.RoleSuperadmin)

	assert.True(t, filter.CanView(user, private))
	assert.False(t, filter.CanView(user, foreign))
	assert.False(t, filter.CanView(user, otherDept))
	assert.False(t, filter.CanView(user, untagged))
	assert.True(t, filter.CanView(user, public))

	assert.True(t, filter.CanView(admin, foreign))
	assert.True(t, filter.CanView(admin, untagged))
}
