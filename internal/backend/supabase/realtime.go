package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/sethvargo/go-retry"

	"github.com/avoronov/pasteboard/internal/backend"
	"github.com/avoronov/pasteboard/internal/client/models"
)

const (
	heartbeatInterval = 25 * time.Second
	readTimeout       = 2 * heartbeatInterval
)

// Realtime returns the change-notification view of the service.
func (c *Client) Realtime() backend.Realtime { return &realtimeAPI{c: c} }

type realtimeAPI struct {
	c *Client
}

// phxMessage is a phoenix-channel frame.
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func entriesTopic(userID string) string {
	return "realtime:public:" + entriesTable + ":user_id=eq." + userID
}

// SubscribeEntries opens a change feed for the user's entries and delivers
// notifications to h in arrival order. The feed reconnects with exponential
// backoff until ctx is canceled or the subscription is closed.
func (r *realtimeAPI) SubscribeEntries(ctx context.Context, userID string, h backend.ChangeHandler) (backend.Subscription, error) {
	wsURL, err := r.socketURL()
	if err != nil {
		return nil, err
	}
	topic := entriesTopic(userID)

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
		for {
			if ctx.Err() != nil {
				return
			}
			started := time.Now()
			err := r.stream(ctx, wsURL, topic, h)
			if ctx.Err() != nil {
				return
			}
			r.c.log.Warn(ctx, "realtime stream interrupted", "topic", topic, "error", err)

			if time.Since(started) > time.Minute {
				// the previous connection was healthy, start backoff over
				backoff = retry.WithCappedDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
			}
			delay, _ := backoff.Next()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

func (r *realtimeAPI) socketURL() (string, error) {
	base := r.c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "", fmt.Errorf("unsupported backend url %q", base)
	}
	return base + "/realtime/v1/websocket?apikey=" + r.c.anonKey + "&vsn=1.0.0", nil
}

// stream runs one websocket session: join the topic, keep heartbeats going,
// and dispatch change frames until the connection drops or ctx is done.
func (r *realtimeAPI) stream(ctx context.Context, wsURL, topic string, h backend.ChangeHandler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	// unblock the read loop when the subscription is torn down
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	var writeMu sync.Mutex
	send := func(msg phxMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	join := phxMessage{Topic: topic, Event: "phx_join", Payload: json.RawMessage(`{}`), Ref: xid.New().String()}
	if err := send(join); err != nil {
		return fmt.Errorf("join failed: %w", err)
	}

	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				hb := phxMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: xid.New().String()}
				if err := send(hb); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		var msg phxMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if msg.Topic != topic {
			continue
		}
		if change, ok := decodeChange(msg.Event, msg.Payload); ok {
			h(change)
		}
	}
}

// changePayload covers both frame layouts the service emits: row events with
// the record at the top level, and postgres_changes frames nesting it under
// "data".
type changePayload struct {
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
	Data      *changePayload  `json:"data"`
}

// decodeChange turns a frame into a Change. Frames that are not row changes
// (joins, replies, presence) return ok=false.
func decodeChange(event string, payload []byte) (backend.Change, bool) {
	var p changePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return backend.Change{}, false
	}
	if p.Data != nil {
		p = *p.Data
	}

	kind := p.Type
	switch event {
	case "INSERT", "UPDATE", "DELETE":
		kind = event
	case "postgres_changes":
	default:
		return backend.Change{}, false
	}

	switch kind {
	case "INSERT", "UPDATE":
		var e models.Entry
		if err := json.Unmarshal(p.Record, &e); err != nil || e.Id == "" {
			return backend.Change{}, false
		}
		k := backend.ChangeInsert
		if kind == "UPDATE" {
			k = backend.ChangeUpdate
		}
		return backend.Change{Kind: k, Entry: &e}, true
	case "DELETE":
		var old struct {
			Id string `json:"id"`
		}
		if err := json.Unmarshal(p.OldRecord, &old); err != nil || old.Id == "" {
			return backend.Change{}, false
		}
		return backend.Change{Kind: backend.ChangeDelete, OldID: old.Id}, true
	default:
		return backend.Change{}, false
	}
}
