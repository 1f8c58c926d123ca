package dao

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

var alertRows = []string{
	"id", "user_id", "rule_id", "severity", "details", "status",
	"closed_by", "close_note", "created_at",
}

func newBurstAlert(createdAt time.Time) *model.SecurityAlert {
	return &model.SecurityAlert{
		ID:        "a1",
		UserID:    "u1",
		RuleID:    "burst_downloads",
		Severity:  model.SeverityMedium,
		Details:   "10 accessi a documenti in 5 minuti",
		CreatedAt: createdAt,
	}
}

func TestCreateOrReuseInsertsWhenNoOpenDuplicate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alert := newBurstAlert(now)
	window := 10 * time.Minute

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("u1|burst_downloads").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM security_alerts WHERE user_id = \$1 AND rule_id = \$2 AND status = 'open'`).
		WithArgs("u1", "burst_downloads", now.Add(-window)).
		WillReturnRows(sqlmock.NewRows(alertRows))
	mock.ExpectExec(`INSERT INTO security_alerts`).
		WithArgs(alert.ID, alert.UserID, alert.RuleID, alert.Severity, alert.Details, alert.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	dao := NewAlertDAO(sqlDB)
	result, created, err := dao.CreateOrReuse(context.Background(), alert, window)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.AlertOpen, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrReuseReturnsExistingOpenAlert(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alert := newBurstAlert(now)
	window := 10 * time.Minute

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("u1|burst_downloads").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM security_alerts WHERE user_id = \$1 AND rule_id = \$2 AND status = 'open'`).
		WithArgs("u1", "burst_downloads", now.Add(-window)).
		WillReturnRows(sqlmock.NewRows(alertRows).
			AddRow("a0", "u1", "burst_downloads", "medium", "10 accessi a documenti in 5 minuti",
				"open", "", "", now.Add(-3*time.Minute)))
	mock.ExpectCommit()

	dao := NewAlertDAO(sqlDB)
	result, created, err := dao.CreateOrReuse(context.Background(), alert, window)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "a0", result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseTransitionsOpenAlert(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE security_alerts`).
		WithArgs("a1", "admin1", "falso positivo").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	dao := NewAlertDAO(sqlDB)
	require.NoError(t, dao.Close(context.Background(), "a1", "admin1", "falso positivo"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAlreadyClosed(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE security_alerts`).
		WithArgs("a1", "admin1", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT .+ FROM security_alerts WHERE id = \$1`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(alertRows).
			AddRow("a1", "u1", "burst_downloads", "medium", "", "closed", "admin1", "ok", now))

	dao := NewAlertDAO(sqlDB)
	err = dao.Close(context.Background(), "a1", "admin1", "")
	assert.ErrorIs(t, err, doc_errors.ErrAlertAlreadyClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseMissingAlert(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE security_alerts`).
		WithArgs("missing", "admin1", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT .+ FROM security_alerts WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(alertRows))

	dao := NewAlertDAO(sqlDB)
	err = dao.Close(context.Background(), "missing", "admin1", "")
	assert.ErrorIs(t, err, doc_errors.ErrAlertNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsAggregatesAndPicksMostTriggeredRule(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	since := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER \(WHERE status = 'open'\)`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count", "open"}).AddRow(7, 4))
	mock.ExpectQuery(`SELECT severity, rule_id, COUNT\(\*\)`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"severity", "rule_id", "count"}).
			AddRow("medium", "burst_downloads", 3).
			AddRow("low", "new_source_access", 3).
			AddRow("high", "cross_scope_access", 1))

	dao := NewAlertDAO(sqlDB)
	stats, err := dao.Stats(context.Background(), since)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.TotalAlerts)
	assert.Equal(t, 4, stats.OpenAlerts)
	assert.Equal(t, 3, stats.ClosedAlerts)
	assert.Equal(t, 3, stats.BySeverity["medium"])
	assert.Equal(t, 1, stats.ByRule["cross_scope_access"])

	// Tie between burst_downloads and new_source_access resolves to the
	// lower rule ID.
	assert.Equal(t, "burst_downloads", stats.MostTriggeredRule)
	assert.NoError(t, mock.ExpectationsWereMet())
}
