package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/pasteboard/internal/backend"
)

func TestEntriesTopic(t *testing.T) {
	require.Equal(t, "realtime:public:clipboard_entries:user_id=eq.u1", entriesTopic("u1"))
}

func TestSocketURL(t *testing.T) {
	r := &realtimeAPI{c: New("https://proj.example.com", "anon-key", nil)}
	u, err := r.socketURL()
	require.NoError(t, err)
	require.Equal(t, "wss://proj.example.com/realtime/v1/websocket?apikey=anon-key&vsn=1.0.0", u)

	r = &realtimeAPI{c: New("http://127.0.0.1:54321", "anon-key", nil)}
	u, err = r.socketURL()
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:54321/realtime/v1/websocket?apikey=anon-key&vsn=1.0.0", u)

	r = &realtimeAPI{c: New("ftp://nope", "anon-key", nil)}
	_, err = r.socketURL()
	require.Error(t, err)
}

func TestDecodeChange(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload string
		want    backend.Change
		ok      bool
	}{
		{
			name:    "insert with top-level record",
			event:   "INSERT",
			payload: `{"record":{"id":"e1","content":"hello"}}`,
			ok:      true,
			want:    backend.Change{Kind: backend.ChangeInsert},
		},
		{
			name:    "update nested under data",
			event:   "postgres_changes",
			payload: `{"data":{"type":"UPDATE","record":{"id":"e1","content":"edited"}}}`,
			ok:      true,
			want:    backend.Change{Kind: backend.ChangeUpdate},
		},
		{
			name:    "delete carries the old id",
			event:   "DELETE",
			payload: `{"old_record":{"id":"e9"}}`,
			ok:      true,
			want:    backend.Change{Kind: backend.ChangeDelete, OldID: "e9"},
		},
		{
			name:    "join reply is not a change",
			event:   "phx_reply",
			payload: `{"status":"ok"}`,
			ok:      false,
		},
		{
			name:    "insert without a record is dropped",
			event:   "INSERT",
			payload: `{}`,
			ok:      false,
		},
		{
			name:    "malformed payload is dropped",
			event:   "INSERT",
			payload: `not json`,
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, ok := decodeChange(tt.event, []byte(tt.payload))
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			require.Equal(t, tt.want.Kind, change.Kind)
			if tt.want.OldID != "" {
				require.Equal(t, tt.want.OldID, change.OldID)
			}
			if change.Kind != backend.ChangeDelete {
				require.Equal(t, "e1", change.Entry.Id)
			}
		})
	}
}

// TestSubscribeEntries_DeliversChanges runs one full websocket session against
// a phoenix-ish fake: join, one insert frame, teardown.
func TestSubscribeEntries_DeliversChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/realtime/v1/websocket", r.URL.Path)
		require.Equal(t, "anon-key", r.URL.Query().Get("apikey"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var join phxMessage
		require.NoError(t, conn.ReadJSON(&join))
		require.Equal(t, "phx_join", join.Event)
		require.Equal(t, entriesTopic("u1"), join.Topic)

		insert := phxMessage{
			Topic:   join.Topic,
			Event:   "INSERT",
			Payload: json.RawMessage(`{"record":{"id":"e1","content":"hello"}}`),
		}
		require.NoError(t, conn.WriteJSON(insert))

		// hold the connection open until the client tears down
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "anon-key", nil)
	changes := make(chan backend.Change, 1)
	sub, err := c.Realtime().SubscribeEntries(context.Background(), "u1", func(ch backend.Change) {
		changes <- ch
	})
	require.NoError(t, err)
	defer sub.Close()

	select {
	case ch := <-changes:
		require.Equal(t, backend.ChangeInsert, ch.Kind)
		require.Equal(t, "e1", ch.Entry.Id)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	require.NoError(t, sub.Close())
}
