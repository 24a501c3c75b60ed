package api_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/agentviz/domain"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event domain.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestWebSocketLiveDelivery(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.echo)
	defer srv.Close()

	conn := dialWS(t, srv)

	handle, err := f.bus.StartRun("maker_checker")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		e := domain.NewEvent(domain.EventTypeAgentMessage, map[string]interface{}{
			"agent": "Worker", "message": "draft",
		})
		require.NoError(t, handle.Publish(e))
	}
	require.NoError(t, handle.Close(domain.EventTypeRunCompleted, nil))

	for i := 0; i < 4; i++ {
		event := readEvent(t, conn)
		assert.Equal(t, i, event.Seq)
	}
}

func TestWebSocketLateJoinReceivesHistoryThenLive(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.echo)
	defer srv.Close()

	handle, err := f.bus.StartRun("maker_checker")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		e := domain.NewEvent(domain.EventTypeAgentMessage, map[string]interface{}{
			"agent": "Worker", "message": "early",
		})
		require.NoError(t, handle.Publish(e))
	}

	// Join mid-run: history first, then live, no gap and no duplicate.
	conn := dialWS(t, srv)

	e := domain.NewEvent(domain.EventTypeHandoff, map[string]interface{}{
		"agent": "Reviewer", "from_agent": "Worker",
	})
	require.NoError(t, handle.Publish(e))
	require.NoError(t, handle.Close(domain.EventTypeRunCompleted, nil))

	var seqs []int
	for i := 0; i < 4; i++ {
		seqs = append(seqs, readEvent(t, conn).Seq)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, seqs)
}
