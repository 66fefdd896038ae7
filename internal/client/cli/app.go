// Package cli implements the interactive PasteBoard client: a small REPL
// over the auth and sync services.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/avoronov/pasteboard/internal/backend/supabase"
	"github.com/avoronov/pasteboard/internal/client/config"
	"github.com/avoronov/pasteboard/internal/client/device"
	"github.com/avoronov/pasteboard/internal/client/services"
	"github.com/avoronov/pasteboard/internal/client/state"
	"github.com/avoronov/pasteboard/internal/client/stores"
	"github.com/avoronov/pasteboard/internal/logging"
)

// App wires the client together: persisted state, backend client, stores,
// and services.
type App struct {
	cfg *config.Config
	log logging.Logger

	db          *sql.DB
	entryStore  *stores.EntryStore
	authStore   *stores.AuthStore
	authService *services.AuthService
	syncService *services.SyncService

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := state.Open(ctx, cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	st := state.NewSQLiteStore(db)

	raw, err := st.Get(ctx, state.KeyAuthSnapshot)
	if err != nil {
		log.Warn(ctx, "failed to load auth snapshot", "error", err)
	}
	snap := stores.DecodeSnapshot(raw)

	client := supabase.New(cfg.BackendURL, cfg.AnonKey, log)
	if snap.Session != nil {
		client.RestoreSession(snap.Session)
	}

	persist := func(s stores.Snapshot) {
		data, err := json.Marshal(s)
		if err == nil {
			err = st.Set(context.Background(), state.KeyAuthSnapshot, data)
		}
		if err != nil {
			log.Warn(context.Background(), "failed to persist auth snapshot", "error", err)
		}
	}
	authStore := stores.NewAuthStore(snap, persist)
	entryStore := stores.NewEntryStore(cfg.MaxEntries)

	dev, err := device.Resolve(ctx, st, cfg.DeviceName)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to resolve device identity: %w", err)
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		entryStore:  entryStore,
		authStore:   authStore,
		authService: services.NewAuthService(client, client.Profiles(), client.Storage(), authStore, log),
		syncService: services.NewSyncService(client.Entries(), client.Realtime(), entryStore, dev, cfg.CacheFreshness, log),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

// Run bootstraps auth and hands control to the REPL. Resources are released
// when the loop exits.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	if err := a.authService.Initialize(ctx); err != nil {
		a.log.Warn(ctx, "auth bootstrap incomplete", "error", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) close() {
	a.syncService.Teardown()
	a.authService.Close()
	if err := a.db.Close(); err != nil {
		a.log.Warn(context.Background(), "failed to close state db", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.authStore.User() != nil
}

// status renders the prompt segment: the signed-in identity or "anonymous".
func (a *App) status() string {
	if p := a.authStore.Profile(); p != nil {
		return p.Name
	}
	if u := a.authStore.User(); u != nil {
		return u.Email
	}
	return "anonymous"
}
