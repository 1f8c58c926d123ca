// audit/memory.go
package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps events in memory. It backs single-node
// development setups and the engine tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *MemoryRepository) Query(_ context.Context, filter Filter, limit, offset int) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Event
	for _, e := range r.events {
		if matches(e, filter) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryRepository) CountActions(_ context.Context, userID string, actions []string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actionSet := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		actionSet[a] = struct{}{}
	}

	count := 0
	for _, e := range r.events {
		if e.UserID != userID || e.Timestamp.Before(since) {
			continue
		}
		if _, ok := actionSet[e.Action]; ok {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) KnownSource(_ context.Context, userID, source string, since, before time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.events {
		if e.UserID == userID && e.Source == source &&
			!e.Timestamp.Before(since) && e.Timestamp.Before(before) {
			return true, nil
		}
	}
	return false, nil
}

func matches(e Event, f Filter) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ObjectType != "" && e.ObjectType != f.ObjectType {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}
