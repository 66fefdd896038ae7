package stores

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/avoronov/pasteboard/internal/client/models"
)

// Snapshot is the narrow, serializable slice of auth state that survives a
// restart: session, profile, and the initialized flag. The user is ephemeral
// and restored from the session on rehydration.
type Snapshot struct {
	Session     *models.Session `json:"session,omitempty"`
	Profile     *models.Profile `json:"profile,omitempty"`
	Initialized bool            `json:"initialized"`
}

// DecodeSnapshot parses a persisted snapshot. Empty or malformed input
// yields a clean zero snapshot, never an error: a broken state file must not
// block startup.
func DecodeSnapshot(raw []byte) Snapshot {
	if len(raw) == 0 {
		return Snapshot{}
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}
	}
	return snap
}

// AuthStore holds identity, session, and profile state, plus the
// loading/initialized bootstrap flags.
//
// If a persist hook is set, it is called with a fresh Snapshot after every
// mutation of persisted state (session, profile, initialized).
type AuthStore struct {
	mu          sync.RWMutex
	user        *models.User
	session     *models.Session
	profile     *models.Profile
	loading     bool
	initialized bool

	persist func(Snapshot)

	notifier
}

// NewAuthStore rehydrates a store from a persisted snapshot.
//
// A snapshot whose session still carries a user makes the store
// optimistically authenticated (loading=false) pending live validation by
// the auth service. Anything else produces a clean anonymous state with
// initialized=false so the bootstrap runs again.
func NewAuthStore(snap Snapshot, persist func(Snapshot)) *AuthStore {
	s := &AuthStore{loading: true, persist: persist}

	if snap.Session != nil && snap.Session.User != nil {
		s.session = snap.Session
		s.user = snap.Session.User
		s.profile = snap.Profile
		s.initialized = snap.Initialized
		s.loading = false
	} else if snap.Session != nil || snap.Profile != nil || snap.Initialized {
		// stale partial state: start over
		s.loading = false
	}
	return s
}

// Subscribe registers a listener invoked synchronously after every mutation.
func (s *AuthStore) Subscribe(fn func()) func() {
	return s.subscribe(fn)
}

func (s *AuthStore) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *AuthStore) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *AuthStore) Profile() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *AuthStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *AuthStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Authenticated reports whether an identity with a locally-valid session is
// present.
func (s *AuthStore) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.session.Valid(time.Now())
}

func (s *AuthStore) SetUser(u *models.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.notify()
}

func (s *AuthStore) SetSession(sess *models.Session) {
	s.mu.Lock()
	s.session = sess
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persistSnap(snap)
	s.notify()
}

func (s *AuthStore) SetProfile(p *models.Profile) {
	s.mu.Lock()
	s.profile = p
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persistSnap(snap)
	s.notify()
}

func (s *AuthStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

func (s *AuthStore) SetInitialized(initialized bool) {
	s.mu.Lock()
	s.initialized = initialized
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persistSnap(snap)
	s.notify()
}

// Reset clears identity, session, and profile (sign-out, auth failure).
func (s *AuthStore) Reset() {
	s.mu.Lock()
	s.user = nil
	s.session = nil
	s.profile = nil
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persistSnap(snap)
	s.notify()
}

// SnapshotState returns the persistable slice of current state.
func (s *AuthStore) SnapshotState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *AuthStore) snapshotLocked() Snapshot {
	return Snapshot{Session: s.session, Profile: s.profile, Initialized: s.initialized}
}

func (s *AuthStore) persistSnap(snap Snapshot) {
	if s.persist != nil {
		s.persist(snap)
	}
}
