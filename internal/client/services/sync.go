// Package services orchestrates the PasteBoard client: the sync service
// bridges the entry store to the remote row store and its change feed, the
// auth service drives session bootstrap and profile provisioning.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avoronov/pasteboard/internal/backend"
	"github.com/avoronov/pasteboard/internal/client/dedup"
	"github.com/avoronov/pasteboard/internal/client/device"
	"github.com/avoronov/pasteboard/internal/client/models"
	"github.com/avoronov/pasteboard/internal/client/stores"
	"github.com/avoronov/pasteboard/internal/common"
	"github.com/avoronov/pasteboard/internal/logging"
)

// DefaultFreshness is how long a successful fetch keeps serving from cache.
const DefaultFreshness = 5 * time.Second

// SyncService keeps the local entry store reconciled with the remote store.
type SyncService struct {
	entries  backend.EntryAPI
	realtime backend.Realtime
	store    *stores.EntryStore
	pending  *dedup.Group
	device   device.Info
	freshFor time.Duration
	log      logging.Logger

	mu  sync.Mutex
	sub backend.Subscription
}

func NewSyncService(entries backend.EntryAPI, realtime backend.Realtime, store *stores.EntryStore, dev device.Info, freshFor time.Duration, log logging.Logger) *SyncService {
	if freshFor <= 0 {
		freshFor = DefaultFreshness
	}
	if log == nil {
		log = logging.Nop()
	}
	return &SyncService{
		entries:  entries,
		realtime: realtime,
		store:    store,
		pending:  dedup.NewGroup(),
		device:   dev,
		freshFor: freshFor,
		log:      log,
	}
}

// Fetch returns the user's recent entries. A fresh, non-empty cache is
// served without a network call unless forceRefresh is set. Concurrent
// fetches for the same user and limit share one remote read. On failure the
// prior store contents are left untouched.
func (s *SyncService) Fetch(ctx context.Context, userID string, limit int, forceRefresh bool) ([]models.Entry, error) {
	if !forceRefresh && s.store.Fresh(s.freshFor, time.Now()) {
		return s.store.Snapshot(), nil
	}

	return dedup.Do(ctx, s.pending, dedup.FetchKey(userID, limit), func(ctx context.Context) ([]models.Entry, error) {
		rows, err := s.entries.List(ctx, userID, limit)
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}
		s.store.SetAll(rows)
		return rows, nil
	})
}

// Save stores new clipboard content. Empty content (after trimming) is
// rejected before any network call. Rapid duplicate saves for the same user
// and content share one remote insert; the created row is applied to the
// local store as soon as the server confirms it.
func (s *SyncService) Save(ctx context.Context, content string, contentType models.ContentType, userID string) (*models.Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, common.ErrEmptyContent
	}
	if !contentType.Valid() {
		return nil, common.ErrInvalidContentType
	}

	return dedup.Do(ctx, s.pending, dedup.SaveKey(userID, content), func(ctx context.Context) (*models.Entry, error) {
		created, err := s.entries.Insert(ctx, models.NewEntry{
			UserId:      userID,
			Content:     content,
			ContentType: contentType,
			DeviceName:  s.device.Name,
			DeviceId:    s.device.Id,
		})
		if err != nil {
			return nil, fmt.Errorf("save failed: %w", err)
		}
		s.store.Insert(*created)
		return created, nil
	})
}

// Update applies the given fields remotely and patches the local entry with
// the canonical row. Double-submitting the same id and fields is benign, so
// updates are not deduplicated.
func (s *SyncService) Update(ctx context.Context, id string, u models.EntryUpdate) (*models.Entry, error) {
	row, err := s.entries.Update(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("update failed: %w", err)
	}
	s.store.Patch(id, models.EntryUpdate{
		Content:     &row.Content,
		ContentType: &row.ContentType,
		UpdatedAt:   row.UpdatedAt,
	})
	return row, nil
}

// Delete removes the entry remotely, then locally. A remote failure leaves
// the local state unchanged.
func (s *SyncService) Delete(ctx context.Context, id string) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	s.store.Remove(id)
	return nil
}

// SubscribeRealtime opens the change feed for the user. At most one
// subscription is active per service; a second call while one is live is a
// no-op.
func (s *SyncService) SubscribeRealtime(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return nil
	}

	sub, err := s.realtime.SubscribeEntries(ctx, userID, s.applyChange)
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	s.sub = sub
	s.log.Info(ctx, "realtime subscription established", "user_id", userID)
	return nil
}

// applyChange reconciles one notification into the store, in arrival order.
// An insert for an id already present (the echo of our own optimistic
// insert) is applied as a patch so the unique-id invariant holds.
func (s *SyncService) applyChange(ch backend.Change) {
	switch ch.Kind {
	case backend.ChangeInsert:
		if ch.Entry == nil {
			return
		}
		if s.store.Contains(ch.Entry.Id) {
			s.patchFrom(*ch.Entry)
			return
		}
		s.store.Insert(*ch.Entry)
	case backend.ChangeUpdate:
		if ch.Entry == nil {
			return
		}
		s.patchFrom(*ch.Entry)
	case backend.ChangeDelete:
		s.store.Remove(ch.OldID)
	}
}

func (s *SyncService) patchFrom(e models.Entry) {
	s.store.Patch(e.Id, models.EntryUpdate{
		Content:     &e.Content,
		ContentType: &e.ContentType,
		UpdatedAt:   e.UpdatedAt,
	})
}

// UnsubscribeRealtime tears down the active subscription; safe to call when
// none is active.
func (s *SyncService) UnsubscribeRealtime() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			s.log.Warn(context.Background(), "failed to close realtime subscription", "error", err)
		}
	}
}

// Teardown unsubscribes and drops all pending-operation registrations.
func (s *SyncService) Teardown() {
	s.UnsubscribeRealtime()
	s.pending.Clear()
}
