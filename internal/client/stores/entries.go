package stores

import (
	"sync"
	"time"

	"github.com/avoronov/pasteboard/internal/client/models"
)

// DefaultMaxEntries bounds the in-memory entry collection.
const DefaultMaxEntries = 50

// EntryStore holds the current user's recent entries, newest first, capped
// at a maximum size, together with the last successful fetch time used for
// cache-freshness checks.
type EntryStore struct {
	mu        sync.RWMutex
	items     []models.Entry
	maxItems  int
	lastFetch time.Time

	notifier
}

func NewEntryStore(maxItems int) *EntryStore {
	if maxItems <= 0 {
		maxItems = DefaultMaxEntries
	}
	return &EntryStore{maxItems: maxItems}
}

// Subscribe registers a listener invoked synchronously after every mutation.
func (s *EntryStore) Subscribe(fn func()) func() {
	return s.subscribe(fn)
}

// SetAll replaces the collection and stamps the freshness marker. Ordering
// is the caller's responsibility; the store does not re-sort.
func (s *EntryStore) SetAll(items []models.Entry) {
	s.mu.Lock()
	s.items = append(s.items[:0:0], items...)
	s.lastFetch = time.Now()
	s.mu.Unlock()
	s.notify()
}

// Insert prepends the entry and evicts the oldest beyond the bound.
func (s *EntryStore) Insert(e models.Entry) {
	s.mu.Lock()
	s.items = append([]models.Entry{e}, s.items...)
	if len(s.items) > s.maxItems {
		s.items = s.items[:s.maxItems]
	}
	s.mu.Unlock()
	s.notify()
}

// Patch applies the non-nil fields to the matching entry. A missing id is a
// no-op, not an error.
func (s *EntryStore) Patch(id string, u models.EntryUpdate) {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].Id != id {
			continue
		}
		if u.Content != nil {
			s.items[i].Content = *u.Content
		}
		if u.ContentType != nil {
			s.items[i].ContentType = *u.ContentType
		}
		if u.UpdatedAt != nil {
			s.items[i].UpdatedAt = u.UpdatedAt
		}
		changed = true
		break
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Remove deletes the matching entry; a missing id is a no-op.
func (s *EntryStore) Remove(id string) {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].Id == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			changed = true
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Clear empties the collection and unsets the freshness marker.
func (s *EntryStore) Clear() {
	s.mu.Lock()
	s.items = nil
	s.lastFetch = time.Time{}
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the collection.
func (s *EntryStore) Snapshot() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Entry(nil), s.items...)
}

func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *EntryStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.items {
		if s.items[i].Id == id {
			return true
		}
	}
	return false
}

// Fresh reports whether the cached collection may be served without a remote
// read: non-empty and fetched within the window.
func (s *EntryStore) Fresh(window time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 || s.lastFetch.IsZero() {
		return false
	}
	return now.Sub(s.lastFetch) < window
}

// LastFetch returns the freshness marker; zero when unset.
func (s *EntryStore) LastFetch() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetch
}
