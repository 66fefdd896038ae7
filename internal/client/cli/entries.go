package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/avoronov/pasteboard/internal/client/models"
	"github.com/avoronov/pasteboard/internal/common"
)

// previewLen bounds how much entry content the list view shows.
const previewLen = 60

func (a *App) requireUser() (string, error) {
	user := a.authStore.User()
	if user == nil {
		fmt.Fprintln(a.out, "Sign in first.")
		return "", common.ErrNotAuthenticated
	}
	return user.Id, nil
}

func (a *App) List(ctx context.Context, force bool) error {
	userID, err := a.requireUser()
	if err != nil {
		return err
	}

	entries, err := a.syncService.Fetch(ctx, userID, a.cfg.FetchLimit, force)
	if err != nil {
		fmt.Fprintf(a.out, "Fetch failed: %v\n", err)
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No entries yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%s  [%s]  %s  %s\n",
			e.Id, e.ContentType, e.CreatedAt.Local().Format("2006-01-02 15:04"), preview(e.Content))
	}
	return nil
}

func preview(content string) string {
	s := strings.ReplaceAll(content, "\n", " ")
	if len(s) > previewLen {
		return s[:previewLen] + "…"
	}
	return s
}

func (a *App) Save(ctx context.Context) error {
	userID, err := a.requireUser()
	if err != nil {
		return err
	}

	content, err := GetMultiline(a.reader, "Paste content", a.out)
	if err != nil {
		return err
	}

	entry, err := a.syncService.Save(ctx, content, models.DetectContentType(content), userID)
	if err != nil {
		fmt.Fprintf(a.out, "Save failed: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Saved %s [%s]\n", entry.Id, entry.ContentType)
	return nil
}

func (a *App) Edit(ctx context.Context) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Entry id", a.out)
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "New content", a.out)
	if err != nil {
		return err
	}

	ctype := models.DetectContentType(content)
	entry, err := a.syncService.Update(ctx, id, models.EntryUpdate{Content: &content, ContentType: &ctype})
	if err != nil {
		fmt.Fprintf(a.out, "Update failed: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", entry.Id)
	return nil
}

func (a *App) Remove(ctx context.Context) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Entry id", a.out)
	if err != nil {
		return err
	}
	if err := a.syncService.Delete(ctx, id); err != nil {
		fmt.Fprintf(a.out, "Delete failed: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}

// Watch follows the realtime change feed, reporting store updates until the
// user presses Enter.
func (a *App) Watch(ctx context.Context) error {
	userID, err := a.requireUser()
	if err != nil {
		return err
	}

	if err := a.syncService.SubscribeRealtime(ctx, userID); err != nil {
		fmt.Fprintf(a.out, "Subscribe failed: %v\n", err)
		return err
	}
	unsubscribe := a.entryStore.Subscribe(func() {
		fmt.Fprintf(a.out, "history updated (%d entries)\n", a.entryStore.Len())
	})
	defer unsubscribe()

	fmt.Fprintln(a.out, "Watching for changes. Press Enter to stop.")
	_, _ = a.reader.ReadString('\n')

	a.syncService.UnsubscribeRealtime()
	return nil
}
