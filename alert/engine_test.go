package alert_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gestore-cpu/gestione-doc-security/alert"
	"github.com/gestore-cpu/gestione-doc-security/audit"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/test/mock"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeAlertStore struct {
	alerts map[string]*model.SecurityAlert
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: make(map[string]*model.SecurityAlert)}
}

func (s *fakeAlertStore) CreateOrReuse(_ context.Context, a *model.SecurityAlert, window time.Duration) (*model.SecurityAlert, bool, error) {
	key := a.UserID + "|" + a.RuleID
	if existing, ok := s.alerts[key]; ok && existing.Status == model.AlertOpen &&
		a.CreatedAt.Sub(existing.CreatedAt) < window {
		return existing, false, nil
	}
	s.alerts[key] = a
	return a, true, nil
}

type fakeUserStore struct {
	users  map[string]*model.User
	emails []string
	err    error
}

func (s *fakeUserStore) GetUser(_ context.Context, userID string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (s *fakeUserStore) AdminEmails(_ context.Context) ([]string, error) {
	return s.emails, nil
}

type fakeDocumentStore struct {
	docs map[string]*model.Document
}

func (s *fakeDocumentStore) GetDocument(_ context.Context, documentID string) (*model.Document, error) {
	d, ok := s.docs[documentID]
	if !ok {
		return nil, errors.New("document not found")
	}
	return d, nil
}

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

type fixture struct {
	engine   *alert.Engine
	repo     *audit.MemoryRepository
	store    *fakeAlertStore
	users    *fakeUserStore
	docs     *fakeDocumentStore
	notifier *mock.MockNotifier
}

func newFixture() *fixture {
	repo := audit.NewMemoryRepository()
	store := newFakeAlertStore()
	users := &fakeUserStore{
		users: map[string]*model.User{
			"u1": {
				ID:          "u1",
				Role:        model.RoleUser,
				Companies:   []model.Company{{ID: "c1", Name: "ACME"}},
				Departments: []model.Department{{ID: "d1", Name: "HR", CompanyID: "c1"}},
			},
			"admin1": {ID: "admin1", Role: model.RoleAdmin},
		},
		emails: []string{"admin@acme.it"},
	}
	docs := &fakeDocumentStore{
		docs: map[string]*model.Document{
			"doc-hr":       {ID: "doc-hr", CompanyName: "ACME", DepartmentTags: `["HR"]`, Visibility: model.VisibilityPrivate},
			"doc-finance":  {ID: "doc-finance", CompanyName: "ACME", DepartmentTags: `["Finance"]`, Visibility: model.VisibilityPrivate},
			"doc-public":   {ID: "doc-public", CompanyName: "Globex", DepartmentTags: `["Legal"]`, Visibility: model.VisibilityPublic},
			"doc-untagged": {ID: "doc-untagged", CompanyName: "ACME", Visibility: model.VisibilityPrivate},
		},
	}
	notifier := new(mock.MockNotifier)

	engine := alert.NewEngine(audit.NewService(repo), store, users, docs, notifier, alert.Config{
		BurstThreshold:    10,
		BurstWindow:       5 * time.Minute,
		DedupWindow:       10 * time.Minute,
		NewSourceLookback: 90 * 24 * time.Hour,
	}).WithClock(func() time.Time { return testNow })

	return &fixture{engine: engine, repo: repo, store: store, users: users, docs: docs, notifier: notifier}
}

func downloadEvent(userID, docID, source string, at time.Time) audit.Event {
	return audit.Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Source:     source,
		Action:     audit.ActionDownloadSuccess,
		ObjectType: "document",
		ObjectID:   docID,
		Timestamp:  at,
	}
}

func seedHistory(f *fixture, events ...audit.Event) {
	for _, e := range events {
		_ = f.repo.Append(context.Background(), e)
	}
}

func TestBurstRuleFiresAtThreshold(t *testing.T) {
	f := newFixture()

	// 9 reads already inside the window, plus the triggering 10th.
	for i := 0; i < 9; i++ {
		seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-time.Duration(i)*time.Second)))
	}
	// The same source is long known, so only the burst rule is in play.
	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-48*time.Hour)))

	tenth := downloadEvent("u1", "doc-hr", "1.2.3.4", testNow)
	seedHistory(f, tenth)

	fired := f.engine.Evaluate(context.Background(), tenth)
	assert.Contains(t, fired, model.RuleBurstDownloads)

	stored := f.store.alerts["u1|"+model.RuleBurstDownloads]
	require.NotNil(t, stored)
	assert.Equal(t, model.SeverityMedium, stored.Severity)
	assert.Equal(t, model.AlertOpen, stored.Status)
}

func TestBurstRuleBelowThreshold(t *testing.T) {
	f := newFixture()

	for i := 0; i < 8; i++ {
		seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-time.Duration(i)*time.Second)))
	}
	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-48*time.Hour)))

	ninth := downloadEvent("u1", "doc-hr", "1.2.3.4", testNow)
	seedHistory(f, ninth)

	fired := f.engine.Evaluate(context.Background(), ninth)
	assert.NotContains(t, fired, model.RuleBurstDownloads)
}

func TestBurstRuleIgnoresEventsOutsideWindow(t *testing.T) {
	f := newFixture()

	for i := 0; i < 9; i++ {
		seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-6*time.Minute)))
	}
	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-48*time.Hour)))

	event := downloadEvent("u1", "doc-hr", "1.2.3.4", testNow)
	seedHistory(f, event)

	fired := f.engine.Evaluate(context.Background(), event)
	assert.NotContains(t, fired, model.RuleBurstDownloads)
}

func TestDuplicateAlertIsReused(t *testing.T) {
	f := newFixture()

	for i := 0; i < 10; i++ {
		seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-time.Duration(i)*time.Second)))
	}
	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-48*time.Hour)))

	first := downloadEvent("u1", "doc-hr", "1.2.3.4", testNow)
	seedHistory(f, first)
	f.engine.Evaluate(context.Background(), first)

	existing := f.store.alerts["u1|"+model.RuleBurstDownloads]
	require.NotNil(t, existing)

	second := downloadEvent("u1", "doc-hr", "1.2.3.4", testNow)
	seedHistory(f, second)
	fired := f.engine.Evaluate(context.Background(), second)

	// The rule still reports firing, but the same open alert backs it.
	assert.Contains(t, fired, model.RuleBurstDownloads)
	assert.Same(t, existing, f.store.alerts["u1|"+model.RuleBurstDownloads])
}

func TestNewSourceRuleFiresForUnseenSource(t *testing.T) {
	f := newFixture()

	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-24*time.Hour)))

	event := downloadEvent("u1", "doc-hr", "5.6.7.8", testNow)
	fired := f.engine.Evaluate(context.Background(), event)

	assert.Contains(t, fired, model.RuleNewSourceAccess)
	stored := f.store.alerts["u1|"+model.RuleNewSourceAccess]
	require.NotNil(t, stored)
	assert.Equal(t, model.SeverityLow, stored.Severity)
}

func TestNewSourceRuleKnownSourceDoesNotFire(t *testing.T) {
	f := newFixture()

	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-24*time.Hour)))

	event := downloadEvent("u1", "doc-hr", "1.2.3.4", testNow)
	fired := f.engine.Evaluate(context.Background(), event)

	assert.NotContains(t, fired, model.RuleNewSourceAccess)
}

func TestNewSourceRuleUnknownSourceNeverFires(t *testing.T) {
	f := newFixture()

	event := downloadEvent("u1", "doc-hr", audit.SourceUnknown, testNow)
	fired := f.engine.Evaluate(context.Background(), event)

	assert.NotContains(t, fired, model.RuleNewSourceAccess)
}

func TestCrossScopeRuleFiresAndNotifiesAdmins(t *testing.T) {
	f := newFixture()
	f.notifier.On("Notify", tmock.Anything, []string{"admin@acme.it"}, tmock.Anything, tmock.Anything).Return(nil)

	// The source is known so only cross-scope fires.
	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-24*time.Hour)))

	event := downloadEvent("u1", "doc-finance", "1.2.3.4", testNow)
	fired := f.engine.Evaluate(context.Background(), event)

	assert.Contains(t, fired, model.RuleCrossScope)
	stored := f.store.alerts["u1|"+model.RuleCrossScope]
	require.NotNil(t, stored)
	assert.Equal(t, model.SeverityHigh, stored.Severity)
	f.notifier.AssertCalled(t, "Notify", tmock.Anything, []string{"admin@acme.it"}, tmock.Anything, tmock.Anything)
}

func TestCrossScopeRuleNotificationFailureKeepsAlert(t *testing.T) {
	f := newFixture()
	f.notifier.On("Notify", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything).
		Return(errors.New("smtp down"))

	seedHistory(f, downloadEvent("u1", "doc-hr", "1.2.3.4", testNow.Add(-24*time.Hour)))

	event := downloadEvent("u1", "doc-finance", "1.2.3.4", testNow)
	fired := f.engine.Evaluate(context.Background(), event)

	assert.Contains(t, fired, model.RuleCrossScope)
	assert.NotNil(t, f.store.alerts["u1|"+model.RuleCrossScope])
}

func TestCrossScopeRuleExemptions(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		docID  string
	}{
		{"matching department", "u1", "doc-hr"},
		{"public document", "u1", "doc-public"},
		{"untagged document", "u1", "doc-untagged"},
		{"admin user", "admin1", "doc-finance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			seedHistory(f, downloadEvent(tt.userID, tt.docID, "1.2.3.4", testNow.Add(-24*time.Hour)))

			event := downloadEvent(tt.userID, tt.docID, "1.2.3.4", testNow)
			fired := f.engine.Evaluate(context.Background(), event)

			assert.NotContains(t, fired, model.RuleCrossScope)
		})
	}
}

func TestRuleFailureDoesNotBlockOtherRules(t *testing.T) {
	f := newFixture()
	// Cross-scope cannot load the user, the other rules still run.
	f.users.err = errors.New("user store down")

	event := downloadEvent("u1", "doc-finance", "5.6.7.8", testNow)
	fired := f.engine.Evaluate(context.Background(), event)

	assert.NotContains(t, fired, model.RuleCrossScope)
	assert.Contains(t, fired, model.RuleNewSourceAccess)
}

func TestLoginEventSkipsDocumentRules(t *testing.T) {
	f := newFixture()

	event := audit.Event{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Source:    "5.6.7.8",
		Action:    audit.ActionLoginSuccess,
		Timestamp: testNow,
	}
	fired := f.engine.Evaluate(context.Background(), event)

	assert.Contains(t, fired, model.RuleNewSourceAccess)
	assert.NotContains(t, fired, model.RuleBurstDownloads)
	assert.NotContains(t, fired, model.RuleCrossScope)
}
