// Package backend defines the interfaces the PasteBoard client expects from
// the hosted backend-as-a-service collaborator: authentication, row storage,
// realtime change notifications, and file storage.
package backend

import (
	"context"

	"github.com/avoronov/pasteboard/internal/client/models"
)

// AuthEventKind enumerates auth-state transitions pushed by the collaborator.
type AuthEventKind string

const (
	AuthEventSignedIn       AuthEventKind = "signed-in"
	AuthEventSignedOut      AuthEventKind = "signed-out"
	AuthEventTokenRefreshed AuthEventKind = "token-refreshed"
	AuthEventInitialSession AuthEventKind = "initial-session"
)

// AuthEvent is a single auth-state notification. Session is nil for
// signed-out events.
type AuthEvent struct {
	Kind    AuthEventKind
	Session *models.Session
}

// AuthAPI is the authentication surface of the collaborator.
type AuthAPI interface {
	// CurrentSession returns the live session, refreshing it if necessary,
	// or (nil, nil) when nobody is signed in.
	CurrentSession(ctx context.Context) (*models.Session, error)

	// CurrentUser returns the identity behind the current session.
	CurrentUser(ctx context.Context) (*models.User, error)

	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)

	// FederatedSignInURL builds the redirect URL starting an OAuth sign-in
	// with the named provider ("google", "github", ...).
	FederatedSignInURL(provider, redirectTo string) (string, error)

	SignUp(ctx context.Context, email, password, name string) (*models.Session, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, newPassword string) error

	// Events exposes the auth-state notification channel. The channel is
	// owned by the implementation and stays open for its lifetime.
	Events() <-chan AuthEvent
}

// EntryAPI is the row-store surface for the clipboard entries table.
type EntryAPI interface {
	// List returns up to limit entries for the user, newest first.
	List(ctx context.Context, userID string, limit int) ([]models.Entry, error)

	// Insert creates an entry and returns the created row with the
	// server-assigned id and timestamp.
	Insert(ctx context.Context, e models.NewEntry) (*models.Entry, error)

	// Update applies the given fields and returns the canonical row.
	Update(ctx context.Context, id string, u models.EntryUpdate) (*models.Entry, error)

	Delete(ctx context.Context, id string) error
}

// ProfileAPI is the row-store surface for the profiles table.
type ProfileAPI interface {
	// Get returns the profile for the user id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Profile, error)

	// Upsert creates or replaces the profile keyed by id.
	Upsert(ctx context.Context, p models.NewProfile) (*models.Profile, error)

	Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)
}

// ChangeKind enumerates realtime row-change notifications.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is one realtime notification. Entry is the new row for inserts and
// updates; OldID identifies the removed row for deletes.
type Change struct {
	Kind  ChangeKind
	Entry *models.Entry
	OldID string
}

// ChangeHandler consumes realtime notifications in arrival order.
type ChangeHandler func(Change)

// Subscription is a live realtime channel. Close tears it down and waits for
// the delivery goroutine to stop.
type Subscription interface {
	Close() error
}

// Realtime subscribes to change notifications for a user's entries.
type Realtime interface {
	SubscribeEntries(ctx context.Context, userID string, h ChangeHandler) (Subscription, error)
}

// Storage is the collaborator's blob store (avatars).
type Storage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	PublicURL(bucket, path string) string
}
