package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/avoronov/pasteboard/internal/backend"
	"github.com/avoronov/pasteboard/internal/client/models"
)

const (
	entriesTable  = "clipboard_entries"
	profilesTable = "profiles"
)

// preferReturn asks PostgREST to echo the affected rows back.
const preferReturn = "return=representation"

// Entries returns the row-store view over the clipboard entries table.
func (c *Client) Entries() backend.EntryAPI { return &entriesAPI{c: c} }

// Profiles returns the row-store view over the profiles table.
func (c *Client) Profiles() backend.ProfileAPI { return &profilesAPI{c: c} }

type entriesAPI struct {
	c *Client
}

func (a *entriesAPI) List(ctx context.Context, userID string, limit int) ([]models.Entry, error) {
	q := url.Values{
		"select":  {"*"},
		"user_id": {"eq." + userID},
		"order":   {"created_at.desc"},
		"limit":   {strconv.Itoa(limit)},
	}
	var rows []models.Entry
	if err := a.c.do(ctx, "GET", "/rest/v1/"+entriesTable, q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return rows, nil
}

func (a *entriesAPI) Insert(ctx context.Context, e models.NewEntry) (*models.Entry, error) {
	headers := map[string]string{"Prefer": preferReturn}
	var rows []models.Entry
	if err := a.c.do(ctx, "POST", "/rest/v1/"+entriesTable, nil, headers, []models.NewEntry{e}, &rows); err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert returned no row")
	}
	return &rows[0], nil
}

func (a *entriesAPI) Update(ctx context.Context, id string, u models.EntryUpdate) (*models.Entry, error) {
	now := time.Now().UTC()
	u.UpdatedAt = &now

	q := url.Values{"id": {"eq." + id}}
	headers := map[string]string{"Prefer": preferReturn}
	var rows []models.Entry
	if err := a.c.do(ctx, "PATCH", "/rest/v1/"+entriesTable, q, headers, u, &rows); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	if len(rows) == 0 {
		return nil, backend.ErrNotFound
	}
	return &rows[0], nil
}

func (a *entriesAPI) Delete(ctx context.Context, id string) error {
	q := url.Values{"id": {"eq." + id}}
	if err := a.c.do(ctx, "DELETE", "/rest/v1/"+entriesTable, q, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

type profilesAPI struct {
	c *Client
}

func (a *profilesAPI) Get(ctx context.Context, id string) (*models.Profile, error) {
	q := url.Values{"select": {"*"}, "id": {"eq." + id}}
	// the object media type makes zero rows a 406, mapped to ErrNotFound
	headers := map[string]string{"Accept": "application/vnd.pgrst.object+json"}
	var p models.Profile
	if err := a.c.do(ctx, "GET", "/rest/v1/"+profilesTable, q, headers, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *profilesAPI) Upsert(ctx context.Context, p models.NewProfile) (*models.Profile, error) {
	q := url.Values{"on_conflict": {"id"}}
	headers := map[string]string{"Prefer": "resolution=merge-duplicates," + preferReturn}
	var rows []models.Profile
	if err := a.c.do(ctx, "POST", "/rest/v1/"+profilesTable, q, headers, []models.NewProfile{p}, &rows); err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("upsert returned no row")
	}
	return &rows[0], nil
}

func (a *profilesAPI) Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	body := map[string]any{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		body["name"] = *u.Name
	}
	if u.AvatarURL != nil {
		body["avatar_url"] = *u.AvatarURL
	}

	q := url.Values{"id": {"eq." + id}}
	headers := map[string]string{"Prefer": preferReturn}
	var rows []models.Profile
	if err := a.c.do(ctx, "PATCH", "/rest/v1/"+profilesTable, q, headers, body, &rows); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, backend.ErrNotFound
	}
	return &rows[0], nil
}
