package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avoronov/pasteboard/internal/backend"
	"github.com/avoronov/pasteboard/internal/client/device"
	"github.com/avoronov/pasteboard/internal/client/models"
	"github.com/avoronov/pasteboard/internal/client/stores"
)

// ---- fakes ----

type fakeEntryAPI struct {
	mu          sync.Mutex
	listCalls   int
	insertCalls int
	deleteCalls int

	listRet   []models.Entry
	listErr   error
	insertErr error
	updateErr error
	deleteErr error

	// when set, List/Insert block until the channel is closed
	block chan struct{}

	nextID int
}

func (f *fakeEntryAPI) wait() {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (f *fakeEntryAPI) List(ctx context.Context, userID string, limit int) ([]models.Entry, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	f.wait()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listRet, nil
}

func (f *fakeEntryAPI) Insert(ctx context.Context, e models.NewEntry) (*models.Entry, error) {
	f.mu.Lock()
	f.insertCalls++
	f.nextID++
	id := fmt.Sprintf("e%d", f.nextID)
	f.mu.Unlock()
	f.wait()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return &models.Entry{
		Id:          id,
		UserId:      e.UserId,
		Content:     e.Content,
		ContentType: e.ContentType,
		DeviceName:  e.DeviceName,
		DeviceId:    e.DeviceId,
		CreatedAt:   time.Now(),
	}, nil
}

func (f *fakeEntryAPI) Update(ctx context.Context, id string, u models.EntryUpdate) (*models.Entry, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	now := time.Now()
	row := models.Entry{Id: id, UserId: "u1", ContentType: models.ContentTypeText, UpdatedAt: &now}
	if u.Content != nil {
		row.Content = *u.Content
	}
	if u.ContentType != nil {
		row.ContentType = *u.ContentType
	}
	return &row, nil
}

func (f *fakeEntryAPI) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	return f.deleteErr
}

type fakeSub struct {
	closed bool
}

func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeRealtime struct {
	mu      sync.Mutex
	calls   int
	handler backend.ChangeHandler
	sub     *fakeSub
	err     error
}

func (f *fakeRealtime) SubscribeEntries(ctx context.Context, userID string, h backend.ChangeHandler) (backend.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	f.handler = h
	f.sub = &fakeSub{}
	return f.sub, nil
}

func newSyncService(t *testing.T, api *fakeEntryAPI, rt *fakeRealtime) (*SyncService, *stores.EntryStore) {
	t.Helper()
	store := stores.NewEntryStore(50)
	dev := device.Info{Id: "dev-1", Name: "testhost (Linux)"}
	svc := NewSyncService(api, rt, store, dev, 5*time.Second, nil)
	return svc, store
}

// ---- save ----

func TestSave_AppliesServerRowToStore(t *testing.T) {
	api := &fakeEntryAPI{}
	svc, store := newSyncService(t, api, &fakeRealtime{})

	entry, err := svc.Save(context.Background(), "hello", models.ContentTypeText, "u1")
	require.NoError(t, err)
	require.Equal(t, "e1", entry.Id)
	require.Equal(t, "dev-1", entry.DeviceId)

	items := store.Snapshot()
	require.Len(t, items, 1)
	require.Equal(t, "e1", items[0].Id)
	require.Equal(t, "hello", items[0].Content)
	require.Equal(t, models.ContentTypeText, items[0].ContentType)
}

func TestSave_EmptyContentRejectedWithoutNetworkCall(t *testing.T) {
	api := &fakeEntryAPI{}
	svc, store := newSyncService(t, api, &fakeRealtime{})

	_, err := svc.Save(context.Background(), "   \n\t", models.ContentTypeText, "u1")
	require.Error(t, err)
	require.Equal(t, 0, api.insertCalls)
	require.Equal(t, 0, store.Len())
}

func TestSave_RapidDuplicatesShareOneInsert(t *testing.T) {
	api := &fakeEntryAPI{block: make(chan struct{})}
	svc, _ := newSyncService(t, api, &fakeRealtime{})

	type result struct {
		entry *models.Entry
		err   error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			e, err := svc.Save(context.Background(), "hello", models.ContentTypeText, "u1")
			results <- result{e, err}
		}()
	}

	// both callers in flight before the insert resolves
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.insertCalls == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(api.block)

	r1, r2 := <-results, <-results
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	require.Equal(t, r1.entry, r2.entry)
	require.Equal(t, 1, api.insertCalls)
}

func TestSave_FailurePropagatesAndLeavesStore(t *testing.T) {
	api := &fakeEntryAPI{insertErr: errors.New("insert refused")}
	svc, store := newSyncService(t, api, &fakeRealtime{})

	_, err := svc.Save(context.Background(), "hello", models.ContentTypeText, "u1")
	require.Error(t, err)
	require.Equal(t, 0, store.Len())
}

// ---- fetch ----

func TestFetch_ServesFreshCacheWithoutRemoteRead(t *testing.T) {
	rows := []models.Entry{
		{Id: "e3", Content: "c", CreatedAt: time.Now()},
		{Id: "e2", Content: "b", CreatedAt: time.Now().Add(-time.Minute)},
		{Id: "e1", Content: "a", CreatedAt: time.Now().Add(-2 * time.Minute)},
	}
	api := &fakeEntryAPI{listRet: rows}
	svc, store := newSyncService(t, api, &fakeRealtime{})

	got, err := svc.Fetch(context.Background(), "u1", 50, false)
	require.NoError(t, err)
	require.Equal(t, rows, got)
	require.Equal(t, rows, store.Snapshot())
	require.False(t, store.LastFetch().IsZero())

	again, err := svc.Fetch(context.Background(), "u1", 50, false)
	require.NoError(t, err)
	require.Equal(t, got, again)
	require.Equal(t, 1, api.listCalls)
}

func TestFetch_ForceRefreshAlwaysReads(t *testing.T) {
	api := &fakeEntryAPI{listRet: []models.Entry{{Id: "e1"}}}
	svc, _ := newSyncService(t, api, &fakeRealtime{})

	_, err := svc.Fetch(context.Background(), "u1", 50, false)
	require.NoError(t, err)
	_, err = svc.Fetch(context.Background(), "u1", 50, true)
	require.NoError(t, err)
	require.Equal(t, 2, api.listCalls)
}

func TestFetch_ConcurrentCallersShareOneRemoteRead(t *testing.T) {
	api := &fakeEntryAPI{listRet: []models.Entry{{Id: "e1"}}, block: make(chan struct{})}
	svc, _ := newSyncService(t, api, &fakeRealtime{})

	results := make(chan []models.Entry, 2)
	for i := 0; i < 2; i++ {
		go func() {
			rows, err := svc.Fetch(context.Background(), "u1", 50, false)
			require.NoError(t, err)
			results <- rows
		}()
	}

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.listCalls == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(api.block)

	r1, r2 := <-results, <-results
	require.Equal(t, r1, r2)
	require.Equal(t, 1, api.listCalls)
}

func TestFetch_FailureLeavesPriorStateUntouched(t *testing.T) {
	api := &fakeEntryAPI{listRet: []models.Entry{{Id: "e1", Content: "keep"}}}
	svc, store := newSyncService(t, api, &fakeRealtime{})

	_, err := svc.Fetch(context.Background(), "u1", 50, false)
	require.NoError(t, err)

	api.listErr = errors.New("read failed")
	_, err = svc.Fetch(context.Background(), "u1", 50, true)
	require.Error(t, err)

	items := store.Snapshot()
	require.Len(t, items, 1)
	require.Equal(t, "keep", items[0].Content)
}

// ---- update / delete ----

func TestUpdate_PatchesCanonicalRow(t *testing.T) {
	api := &fakeEntryAPI{}
	svc, store := newSyncService(t, api, &fakeRealtime{})
	store.SetAll([]models.Entry{{Id: "e1", Content: "hello", ContentType: models.ContentTypeText, DeviceId: "dev-9"}})

	content := "bye"
	row, err := svc.Update(context.Background(), "e1", models.EntryUpdate{Content: &content})
	require.NoError(t, err)
	require.Equal(t, "bye", row.Content)

	items := store.Snapshot()
	require.Equal(t, "bye", items[0].Content)
	require.Equal(t, "dev-9", items[0].DeviceId)
	require.NotNil(t, items[0].UpdatedAt)
}

func TestDelete_RemovesLocallyAfterRemoteSuccess(t *testing.T) {
	api := &fakeEntryAPI{}
	svc, store := newSyncService(t, api, &fakeRealtime{})
	store.SetAll([]models.Entry{{Id: "e1"}})

	require.NoError(t, svc.Delete(context.Background(), "e1"))
	require.Equal(t, 0, store.Len())
}

func TestDelete_RemoteFailureLeavesLocalState(t *testing.T) {
	api := &fakeEntryAPI{deleteErr: errors.New("delete refused")}
	svc, store := newSyncService(t, api, &fakeRealtime{})
	store.SetAll([]models.Entry{{Id: "e1"}})

	require.Error(t, svc.Delete(context.Background(), "e1"))
	require.Equal(t, 1, store.Len())
}

// ---- realtime ----

func TestSubscribeRealtime_IsIdempotent(t *testing.T) {
	rt := &fakeRealtime{}
	svc, _ := newSyncService(t, &fakeEntryAPI{}, rt)

	require.NoError(t, svc.SubscribeRealtime(context.Background(), "u1"))
	require.NoError(t, svc.SubscribeRealtime(context.Background(), "u1"))
	require.Equal(t, 1, rt.calls)
}

func TestRealtime_InsertNotificationPrepends(t *testing.T) {
	rt := &fakeRealtime{}
	svc, store := newSyncService(t, &fakeEntryAPI{}, rt)
	require.NoError(t, svc.SubscribeRealtime(context.Background(), "u1"))

	rt.handler(backend.Change{Kind: backend.ChangeInsert, Entry: &models.Entry{Id: "e1", Content: "from elsewhere"}})

	items := store.Snapshot()
	require.Len(t, items, 1)
	require.Equal(t, "e1", items[0].Id)
}

func TestRealtime_EchoOfLocalInsertDoesNotDuplicate(t *testing.T) {
	rt := &fakeRealtime{}
	svc, store := newSyncService(t, &fakeEntryAPI{}, rt)
	require.NoError(t, svc.SubscribeRealtime(context.Background(), "u1"))

	store.Insert(models.Entry{Id: "e1", Content: "local"})
	rt.handler(backend.Change{Kind: backend.ChangeInsert, Entry: &models.Entry{Id: "e1", Content: "echo"}})

	items := store.Snapshot()
	require.Len(t, items, 1)
	require.Equal(t, "echo", items[0].Content)
}

func TestRealtime_DeleteNotificationIsIdempotent(t *testing.T) {
	rt := &fakeRealtime{}
	svc, store := newSyncService(t, &fakeEntryAPI{}, rt)
	require.NoError(t, svc.SubscribeRealtime(context.Background(), "u1"))
	store.SetAll([]models.Entry{{Id: "e1"}, {Id: "e2"}})

	rt.handler(backend.Change{Kind: backend.ChangeDelete, OldID: "e1"})
	require.Equal(t, 1, store.Len())

	rt.handler(backend.Change{Kind: backend.ChangeDelete, OldID: "e1"})
	require.Equal(t, 1, store.Len())
}

func TestRealtime_UpdateNotificationPatches(t *testing.T) {
	rt := &fakeRealtime{}
	svc, store := newSyncService(t, &fakeEntryAPI{}, rt)
	require.NoError(t, svc.SubscribeRealtime(context.Background(), "u1"))
	store.SetAll([]models.Entry{{Id: "e1", Content: "old"}})

	rt.handler(backend.Change{Kind: backend.ChangeUpdate, Entry: &models.Entry{Id: "e1", Content: "new", ContentType: models.ContentTypeText}})

	require.Equal(t, "new", store.Snapshot()[0].Content)
}

func TestTeardown_ClosesSubscription(t *testing.T) {
	rt := &fakeRealtime{}
	svc, _ := newSyncService(t, &fakeEntryAPI{}, rt)
	require.NoError(t, svc.SubscribeRealtime(context.Background(), "u1"))

	svc.Teardown()
	require.True(t, rt.sub.closed)

	// safe to call again with nothing active
	svc.UnsubscribeRealtime()
	svc.Teardown()
}
