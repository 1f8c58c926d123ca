package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestore-cpu/gestione-doc-security/audit"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seededRepository(t *testing.T) *audit.MemoryRepository {
	t.Helper()
	repo := audit.NewMemoryRepository()
	events := []audit.Event{
		{ID: "e1", UserID: "u1", Source: "1.2.3.4", Action: audit.ActionLoginSuccess, Timestamp: base.Add(-30 * time.Minute)},
		{ID: "e2", UserID: "u1", Source: "1.2.3.4", Action: audit.ActionViewSuccess, ObjectType: "document", ObjectID: "doc1", Timestamp: base.Add(-10 * time.Minute)},
		{ID: "e3", UserID: "u1", Source: "1.2.3.4", Action: audit.ActionDownloadSuccess, ObjectType: "document", ObjectID: "doc1", Timestamp: base.Add(-2 * time.Minute)},
		{ID: "e4", UserID: "u2", Source: "5.6.7.8", Action: audit.ActionDownloadSuccess, ObjectType: "document", ObjectID: "doc2", Timestamp: base.Add(-1 * time.Minute)},
	}
	for _, e := range events {
		require.NoError(t, repo.Append(context.Background(), e))
	}
	return repo
}

func TestQueryNewestFirst(t *testing.T) {
	repo := seededRepository(t)

	events, err := repo.Query(context.Background(), audit.Filter{UserID: "u1"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "e3", events[0].ID)
	assert.Equal(t, "e2", events[1].ID)
	assert.Equal(t, "e1", events[2].ID)
}

func TestQueryLimitAndOffset(t *testing.T) {
	repo := seededRepository(t)

	events, err := repo.Query(context.Background(), audit.Filter{UserID: "u1"}, 1, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e2", events[0].ID)

	events, err = repo.Query(context.Background(), audit.Filter{UserID: "u1"}, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestQueryFiltersByActionAndWindow(t *testing.T) {
	repo := seededRepository(t)

	events, err := repo.Query(context.Background(), audit.Filter{
		Action: audit.ActionDownloadSuccess,
		Since:  base.Add(-5 * time.Minute),
	}, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e4", events[0].ID)
	assert.Equal(t, "e3", events[1].ID)
}

func TestCountActionsWindow(t *testing.T) {
	repo := seededRepository(t)
	actions := []string{audit.ActionDownloadSuccess, audit.ActionViewSuccess}

	count, err := repo.CountActions(context.Background(), "u1", actions, base.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The login at -30m never counts as a document access.
	count, err = repo.CountActions(context.Background(), "u1", actions, base.Add(-1*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestKnownSourceBounds(t *testing.T) {
	repo := seededRepository(t)
	ctx := context.Background()

	known, err := repo.KnownSource(ctx, "u1", "1.2.3.4", base.Add(-time.Hour), base)
	require.NoError(t, err)
	assert.True(t, known)

	// The upper bound is exclusive, so an event at exactly the bound does
	// not count as history.
	known, err = repo.KnownSource(ctx, "u1", "1.2.3.4", base.Add(-time.Hour), base.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.False(t, known)

	known, err = repo.KnownSource(ctx, "u1", "5.6.7.8", base.Add(-time.Hour), base)
	require.NoError(t, err)
	assert.False(t, known)
}
