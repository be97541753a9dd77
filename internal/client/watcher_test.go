package client

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

	"nigran/internal/models"
)

var upgrader = websocket.Upgrader{}

// scriptedServer answers the first request_stats with a full snapshot
// followed by one delta, then services the connection until it closes.
func scriptedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req models.WebSocketMessage
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		require.Equal(t, models.MsgRequestStats, req.Type)
		require.True(t, req.Full, "first contact must ask for a full snapshot")

		full, _ := json.Marshal(&models.Snapshot{
			Timestamp: time.Now(),
			CPU:       &models.CPUStatus{UsagePercent: 25, CoreCount: 4},
			Memory:    &models.MemoryStatus{UsedPercent: 40},
		})
		require.NoError(t, conn.WriteJSON(models.WebSocketMessage{
			Type: models.MsgStatsUpdate,
			Data: full,
		}))

		delta, _ := json.Marshal(&models.Snapshot{
			Timestamp: time.Now(),
			CPU:       &models.CPUStatus{UsagePercent: 80, CoreCount: 4},
		})
		require.NoError(t, conn.WriteJSON(models.WebSocketMessage{
			Type:        models.MsgStatsUpdate,
			Incremental: true,
			Data:        delta,
		}))

		// Drain until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWatcherReconcilesFullThenDelta(t *testing.T) {
	srv := scriptedServer(t)
	defer srv.Close()

	mirror := NewMirror()
	w := NewWatcher(wsURL(srv), "", mirror, time.Minute)

	updates := make(chan *models.Snapshot, 8)
	w.OnUpdate(func(s *models.Snapshot) { updates <- s })

	type sessionResult struct {
		connected bool
		err       error
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan sessionResult, 1)
	go func() {
		connected, err := w.session(ctx)
		done <- sessionResult{connected, err}
	}()

	wait := func() *models.Snapshot {
		select {
		case s := <-updates:
			return s
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for an update")
			return nil
		}
	}

	first := wait()
	require.NotNil(t, first.CPU)
	assert.Equal(t, 25.0, first.CPU.UsagePercent)
	assert.Equal(t, 40.0, first.Memory.UsedPercent)

	second := wait()
	assert.Equal(t, 80.0, second.CPU.UsagePercent)
	assert.Equal(t, 40.0, second.Memory.UsedPercent, "delta left memory untouched")

	cancel()
	select {
	case res := <-done:
		assert.True(t, res.connected)
		assert.ErrorIs(t, res.err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not shut down")
	}
}

// A failed dial must report the connection as never established, so the
// reconnect loop keeps growing its backoff; an established session resets it.
func TestSessionReportsDialFailure(t *testing.T) {
	w := NewWatcher("ws://127.0.0.1:1/ws", "", NewMirror(), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connected, err := w.session(ctx)
	assert.False(t, connected)
	assert.Error(t, err)
}

func TestWatcherRequestsResyncOnEarlyDelta(t *testing.T) {
	mirror := NewMirror()
	w := NewWatcher("ws://unused", "", mirror, time.Minute)

	delta, _ := json.Marshal(&models.Snapshot{
		Timestamp: time.Now(),
		CPU:       &models.CPUStatus{UsagePercent: 80},
	})
	w.handle(nil, models.WebSocketMessage{
		Type:        models.MsgStatsUpdate,
		Incremental: true,
		Data:        delta,
	})

	assert.False(t, mirror.Ready(), "delta without a prior full must not seed the mirror")
	select {
	case <-w.resync:
	default:
		t.Fatal("expected a queued resync request")
	}
}

func TestWatcherRequestsResyncOnMalformedUpdate(t *testing.T) {
	mirror := NewMirror()
	w := NewWatcher("ws://unused", "", mirror, time.Minute)

	w.handle(nil, models.WebSocketMessage{
		Type: models.MsgStatsUpdate,
		Data: []byte("{not json"),
	})

	select {
	case <-w.resync:
	default:
		t.Fatal("expected a queued resync request")
	}
}

func TestDialURLCarriesToken(t *testing.T) {
	w := NewWatcher("ws://host:8080/ws", "tok123", NewMirror(), time.Minute)
	assert.Equal(t, "ws://host:8080/ws?token=tok123", w.dialURL())

	bare := NewWatcher("ws://host:8080/ws", "", NewMirror(), time.Minute)
	assert.Equal(t, "ws://host:8080/ws", bare.dialURL())
}
