package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/event"
)

func newTestClient(userID uint64) *Client {
	return &Client{
		userID: userID,
		send:   make(chan event.Event, sendBuffer),
		done:   make(chan struct{}),
	}
}

func TestNotifyTargetsRecipientsOnly(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient(1)
	b := newTestClient(2)
	h.register(a)
	h.register(b)

	h.Notify(event.Event{
		Type:       event.TypeChatUpdated,
		ChatID:     7,
		Recipients: []uint64{1, 99}, // 99 has no connection
	})

	select {
	case ev := <-a.send:
		assert.Equal(t, uint64(7), ev.ChatID)
	default:
		t.Fatal("expected event for user 1")
	}
	assert.Empty(t, b.send)
}

func TestRegisterReplacesPreviousConnection(t *testing.T) {
	h := NewHub(nil)
	old := newTestClient(1)
	h.register(old)
	require.True(t, h.Online(1))

	fresh := newTestClient(1)
	h.register(fresh)

	// The stale connection was told to shut down and no longer
	// accepts events.
	select {
	case <-old.done:
	case <-time.After(time.Second):
		t.Fatal("previous connection was not closed")
	}
	assert.False(t, old.trySend(event.Event{Type: event.TypeChatUpdated}))
	assert.True(t, fresh.trySend(event.Event{Type: event.TypeChatUpdated}))

	// Unregistering the stale client must not evict the fresh one.
	h.unregister(old)
	assert.True(t, h.Online(1))
}

func TestNotifyDropsClientWithFullBuffer(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(1)
	h.register(c)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.trySend(event.Event{Type: event.TypeChatUpdated}))
	}

	// The buffer is full and nothing drains it; the hub gives up on
	// the connection instead of blocking.
	h.Notify(event.Event{Type: event.TypeChatUpdated, Recipients: []uint64{1}})

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("stuck client was not dropped")
	}
}

func TestServeDeliversEventsOverWebsocket(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, 42)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens before Serve starts pumping, but give the
	// server goroutine a moment on slow machines.
	require.Eventually(t, func() bool { return h.Online(42) }, time.Second, 10*time.Millisecond)

	h.Notify(event.Event{
		Type:       event.TypeTraderSelected,
		ListingID:  5,
		ChatID:     9,
		Recipients: []uint64{42},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got event.Event
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, event.TypeTraderSelected, got.Type)
	assert.Equal(t, uint64(5), got.ListingID)
	assert.Equal(t, uint64(9), got.ChatID)
}
