// audit/service.go
package audit

import (
	"context"
	"time"
)

// Service is the append-only audit sink the security core writes to and
// the alert engine reads from.
type Service interface {
	// Append records one event.
	Append(ctx context.Context, event Event) error
	// Query returns events matching the filter, newest first.
	Query(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	// CountActions counts events by the user with any of the given action
	// tags since the cutoff.
	CountActions(ctx context.Context, userID string, actions []string, since time.Time) (int, error)
	// KnownSource reports whether the source identifier appears in the
	// user's history inside [since, before).
	KnownSource(ctx context.Context, userID, source string, since, before time.Time) (bool, error)
}

type service struct {
	repo Repository
}

// NewService wraps a repository in the Service interface.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Append(ctx context.Context, event Event) error {
	return s.repo.Append(ctx, event)
}

func (s *service) Query(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	return s.repo.Query(ctx, filter, limit, offset)
}

func (s *service) CountActions(ctx context.Context, userID string, actions []string, since time.Time) (int, error) {
	return s.repo.CountActions(ctx, userID, actions, since)
}

func (s *service) KnownSource(ctx context.Context, userID, source string, since, before time.Time) (bool, error) {
	return s.repo.KnownSource(ctx, userID, source, since, before)
}
