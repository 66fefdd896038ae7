// Package dedup collapses concurrent equivalent operations into a single
// execution. The first caller for a key runs the operation; callers arriving
// while it is in flight wait for, and share, its outcome. The registration is
// removed exactly once when the operation settles, success or failure, so a
// failed operation never leaves a stale entry behind.
package dedup

import (
	"context"
	"fmt"
	"sync"
)

// call is one in-flight operation. done is closed after val/err are set.
type call struct {
	done chan struct{}
	val  any
	err  error
}

// Group tracks in-flight operations by key. The zero value is ready to use.
type Group struct {
	mu    sync.Mutex
	calls map[string]*call
}

func NewGroup() *Group {
	return &Group{calls: make(map[string]*call)}
}

// Do executes fn under key, or joins an execution already in flight for the
// same key. Joining callers block until the leader settles or their own
// context is done; abandoning the wait does not disturb the shared call.
func Do[T any](ctx context.Context, g *Group, key string, fn func(context.Context) (T, error)) (T, error) {
	v, err := g.do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	t, _ := v.(T)
	return t, err
}

func (g *Group) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call)
	}
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		// Clear may have replaced the table while we ran; only remove our
		// own registration.
		if cur, ok := g.calls[key]; ok && cur == c {
			delete(g.calls, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()

	c.val, c.err = fn(ctx)
	return c.val, c.err
}

// Pending reports how many operations are currently registered.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// Clear drops all registrations. In-flight leaders still complete and settle
// their waiters; they just stop being joinable.
func (g *Group) Clear() {
	g.mu.Lock()
	g.calls = make(map[string]*call)
	g.mu.Unlock()
}

// maxSaveKeyContent bounds how much content discriminates a save operation.
const maxSaveKeyContent = 50

// FetchKey identifies a history fetch for a user at a given limit.
func FetchKey(userID string, limit int) string {
	return fmt.Sprintf("fetch:%s:%d", userID, limit)
}

// SaveKey identifies a save by user and a bounded content prefix, so two
// rapid identical saves share one insert.
func SaveKey(userID, content string) string {
	if len(content) > maxSaveKeyContent {
		content = content[:maxSaveKeyContent]
	}
	return "save:" + userID + ":" + content
}

// ProfileKey identifies a profile load-or-create for a user.
func ProfileKey(userID string) string {
	return "profile:" + userID
}
