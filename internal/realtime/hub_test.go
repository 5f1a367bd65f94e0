package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmarket/internal/events"
)

func serveHub(t *testing.T, hub *Hub, userID int64) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(userID, ws)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHub_PushesEventsToTheirUserOnly(t *testing.T) {
	hub := NewHub()
	client, _, err := websocket.DefaultDialer.Dial(serveHub(t, hub, 7), nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.Connections(7) == 1 }, time.Second, 10*time.Millisecond)

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, hub.Publish(context.Background(), events.NewExecutionEvent(events.TypeExecutionExpired, 99, 3, 8, at)))
	require.NoError(t, hub.Publish(context.Background(), events.NewExecutionEvent(events.TypeExecutionExpired, 11, 3, 7, at)))

	var got events.ExecutionEvent
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, int64(11), got.ExecutionID, "the event of user 8 must not arrive here")
	assert.Equal(t, events.TypeExecutionExpired, got.Type)
	assert.True(t, at.Equal(got.OccurredAt))
}

func TestHub_ForgetsClosedSockets(t *testing.T) {
	hub := NewHub()
	client, _, err := websocket.DefaultDialer.Dial(serveHub(t, hub, 7), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connections(7) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close())
	assert.Eventually(t, func() bool { return hub.Connections(7) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishWithoutListenersIsNoop(t *testing.T) {
	hub := NewHub()
	assert.NoError(t, hub.Publish(context.Background(), events.ExecutionEvent{UserID: 1}))
	assert.NoError(t, hub.Close())
}
