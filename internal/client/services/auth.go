package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/avoronov/pasteboard/internal/backend"
	"github.com/avoronov/pasteboard/internal/client/dedup"
	"github.com/avoronov/pasteboard/internal/client/models"
	"github.com/avoronov/pasteboard/internal/client/stores"
	"github.com/avoronov/pasteboard/internal/common"
	"github.com/avoronov/pasteboard/internal/logging"
)

// AuthService drives the session bootstrap state machine and keeps the auth
// store reconciled with the collaborator's auth-state notifications.
type AuthService struct {
	auth     backend.AuthAPI
	profiles backend.ProfileAPI
	storage  backend.Storage
	store    *stores.AuthStore
	pending  *dedup.Group
	log      logging.Logger

	mu          sync.Mutex
	initialized bool
	stop        context.CancelFunc
	done        chan struct{}
}

func NewAuthService(auth backend.AuthAPI, profiles backend.ProfileAPI, storage backend.Storage, store *stores.AuthStore, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{
		auth:     auth,
		profiles: profiles,
		storage:  storage,
		store:    store,
		pending:  dedup.NewGroup(),
		log:      log,
	}
}

// Initialize validates the live session and settles the store into
// ready(authenticated) or ready(anonymous). Only one initialization runs per
// service lifetime: a re-entrant call is a no-op. The auth-state event loop
// is started here and runs until Close.
func (a *AuthService) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return nil
	}
	a.initialized = true

	loopCtx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	go a.eventLoop(loopCtx, a.done)

	err := a.bootstrap(ctx)

	// the UI must never stay blocked on bootstrap
	a.store.SetLoading(false)
	a.store.SetInitialized(true)
	return err
}

func (a *AuthService) bootstrap(ctx context.Context) error {
	session, err := a.auth.CurrentSession(ctx)
	if err != nil {
		// fail-safe: treat as anonymous, surface the error
		a.store.Reset()
		return fmt.Errorf("session validation failed: %w", err)
	}

	if session == nil || session.User == nil {
		// clears any stale persisted identity
		a.store.Reset()
		return nil
	}

	a.store.SetUser(session.User)
	a.store.SetSession(session)

	if err := a.loadProfile(ctx, session.User); err != nil {
		return fmt.Errorf("profile load failed: %w", err)
	}
	return nil
}

// RefreshSession re-validates the live session on demand, e.g. after an
// OAuth redirect lands. Unlike Initialize it may run any number of times.
func (a *AuthService) RefreshSession(ctx context.Context) error {
	session, err := a.auth.CurrentSession(ctx)
	if err != nil {
		return fmt.Errorf("session validation failed: %w", err)
	}
	if session == nil || session.User == nil {
		return nil
	}
	a.store.SetUser(session.User)
	a.store.SetSession(session)
	return a.loadProfile(ctx, session.User)
}

// eventLoop applies auth-state notifications as state-machine transitions.
func (a *AuthService) eventLoop(ctx context.Context, done chan struct{}) {
	// close the channel captured at start: Close nils a.done before waiting
	defer close(done)
	events := a.auth.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handleEvent(ctx, ev)
		}
	}
}

func (a *AuthService) handleEvent(ctx context.Context, ev backend.AuthEvent) {
	a.log.Debug(ctx, "auth state change", "kind", string(ev.Kind))

	switch ev.Kind {
	case backend.AuthEventSignedIn, backend.AuthEventTokenRefreshed, backend.AuthEventInitialSession:
		var user *models.User
		if ev.Session != nil {
			user = ev.Session.User
		}
		a.store.SetUser(user)
		a.store.SetSession(ev.Session)
		if user != nil {
			if err := a.loadProfile(ctx, user); err != nil {
				a.log.Error(ctx, "profile load failed", "user_id", user.Id, "error", err)
			}
		}
		a.store.SetLoading(false)

	case backend.AuthEventSignedOut:
		a.store.Reset()
		a.pending.Clear()
	}
}

// loadProfile reads the user's profile, provisioning one on first sign-in.
// Concurrent loads for the same user share one execution, so the
// load-or-create sequence can never race itself into a duplicate-key error.
func (a *AuthService) loadProfile(ctx context.Context, user *models.User) error {
	profile, err := dedup.Do(ctx, a.pending, dedup.ProfileKey(user.Id), func(ctx context.Context) (*models.Profile, error) {
		p, err := a.profiles.Get(ctx, user.Id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, backend.ErrNotFound) {
			return nil, err
		}
		return a.profiles.Upsert(ctx, models.ProfileFor(user))
	})
	if err != nil {
		return err
	}
	a.store.SetProfile(profile)
	return nil
}

// SignInWithEmail authenticates with a password. The resulting signed-in
// notification updates the store; loading stays true until then.
func (a *AuthService) SignInWithEmail(ctx context.Context, email, password string) error {
	if _, err := a.auth.SignInWithPassword(ctx, email, password); err != nil {
		a.store.SetLoading(false)
		return err
	}
	return nil
}

// FederatedSignInURL returns the redirect URL starting an OAuth sign-in.
func (a *AuthService) FederatedSignInURL(provider, redirectTo string) (string, error) {
	return a.auth.FederatedSignInURL(provider, redirectTo)
}

func (a *AuthService) SignUp(ctx context.Context, email, password, name string) error {
	a.store.SetLoading(true)
	defer a.store.SetLoading(false)
	_, err := a.auth.SignUp(ctx, email, password, name)
	return err
}

// SignOut signs out remotely and clears local identity. The signed-out
// notification makes the clearing idempotent.
func (a *AuthService) SignOut(ctx context.Context) error {
	err := a.auth.SignOut(ctx)
	a.store.Reset()
	a.pending.Clear()
	return err
}

func (a *AuthService) ResetPassword(ctx context.Context, email, redirectTo string) error {
	return a.auth.SendPasswordReset(ctx, email, redirectTo)
}

func (a *AuthService) UpdatePassword(ctx context.Context, newPassword string) error {
	return a.auth.UpdatePassword(ctx, newPassword)
}

// UpdateProfile writes the given fields and stores the canonical record.
func (a *AuthService) UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Profile, error) {
	user := a.store.User()
	if user == nil {
		return nil, common.ErrNotAuthenticated
	}
	profile, err := a.profiles.Update(ctx, user.Id, u)
	if err != nil {
		return nil, fmt.Errorf("profile update failed: %w", err)
	}
	a.store.SetProfile(profile)
	return profile, nil
}

// avatarsBucket is the blob-store bucket holding profile pictures.
const avatarsBucket = "avatars"

// UploadAvatar stores a profile picture and points the profile at its public
// URL. The object path is stable per user, so a re-upload replaces the old
// picture.
func (a *AuthService) UploadAvatar(ctx context.Context, data []byte, contentType string) (*models.Profile, error) {
	user := a.store.User()
	if user == nil {
		return nil, common.ErrNotAuthenticated
	}

	path := user.Id + "/avatar" + avatarExt(contentType)
	if err := a.storage.Upload(ctx, avatarsBucket, path, data, contentType); err != nil {
		return nil, fmt.Errorf("avatar upload failed: %w", err)
	}

	url := a.storage.PublicURL(avatarsBucket, path)
	return a.UpdateProfile(ctx, models.ProfileUpdate{AvatarURL: &url})
}

func avatarExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// Close stops the event loop and drops pending registrations.
func (a *AuthService) Close() {
	a.mu.Lock()
	stop, done := a.stop, a.done
	a.stop, a.done = nil, nil
	a.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	a.pending.Clear()
}
