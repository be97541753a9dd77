package client

import (
	"context"
	"fmt"
	"log"
	"time"

	"nigran/internal/models"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	reconnectBackoffMin = time.Second
	reconnectBackoffMax = 30 * time.Second
)

// Watcher keeps a Mirror synchronized with a remote server. It owns every
// resync decision: it requests a full snapshot on first connect, after a
// reconnect, on an explicit Resync call, and when the watchdog fires because
// no message of any kind arrived in time. Field-level repair is never
// attempted.
type Watcher struct {
	url      string
	token    string
	mirror   *Mirror
	watchdog time.Duration
	onUpdate func(*models.Snapshot)

	resync chan struct{}
}

func NewWatcher(url, token string, mirror *Mirror, watchdog time.Duration) *Watcher {
	return &Watcher{
		url:      url,
		token:    token,
		mirror:   mirror,
		watchdog: watchdog,
		resync:   make(chan struct{}, 1),
	}
}

// OnUpdate registers a callback invoked with the reconciled mirror state
// after every applied update.
func (w *Watcher) OnUpdate(fn func(*models.Snapshot)) { w.onUpdate = fn }

// Resync asks the server for a full snapshot on the next exchange.
func (w *Watcher) Resync() {
	select {
	case w.resync <- struct{}{}:
	default:
	}
}

// Run connects and keeps the mirror synchronized until the context is
// cancelled, reconnecting with backoff after transport failures. The backoff
// only grows across consecutive dial failures; a session that got
// established resets it, so a long-lived connection that drops is retried
// promptly.
func (w *Watcher) Run(ctx context.Context) error {
	backoff := reconnectBackoffMin
	for {
		connected, err := w.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = reconnectBackoffMin
		}
		log.Printf("[SYNC] connection lost: %v (reconnecting in %v)", err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectBackoffMax {
			backoff = reconnectBackoffMax
		}
	}
}

// session runs one connection lifetime: dial, request a full snapshot, then
// apply updates until the transport fails or the context is cancelled. The
// boolean reports whether the connection was established at all.
func (w *Watcher) session(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, w.dialURL(), nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", w.url, err)
	}
	defer conn.Close()

	// Messages are received on a channel so the select below can multiplex
	// the read loop with the watchdog and explicit resyncs.
	msgs := make(chan models.WebSocketMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg models.WebSocketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	// First contact always starts from a full snapshot.
	if err := w.requestStats(conn, true); err != nil {
		return true, err
	}

	watchdog := time.NewTimer(w.watchdog)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return true, ctx.Err()

		case err := <-readErr:
			return true, err

		case <-w.resync:
			if err := w.requestStats(conn, true); err != nil {
				return true, err
			}

		case <-watchdog.C:
			// Nothing arrived in the window, not even a heartbeat: a
			// message may have been lost. Ask for a full snapshot
			// instead of trusting the delta chain.
			log.Printf("[SYNC] watchdog fired after %v of silence, requesting full resync", w.watchdog)
			if err := w.requestStats(conn, true); err != nil {
				return true, err
			}
			watchdog.Reset(w.watchdog)

		case msg := <-msgs:
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(w.watchdog)
			w.handle(conn, msg)
		}
	}
}

func (w *Watcher) handle(conn *websocket.Conn, msg models.WebSocketMessage) {
	switch msg.Type {
	case models.MsgStatsUpdate:
		snap := &models.Snapshot{}
		if err := json.Unmarshal(msg.Data, snap); err != nil {
			log.Printf("[SYNC] malformed stats_update, requesting full resync: %v", err)
			w.Resync()
			return
		}
		if msg.Incremental && !w.mirror.Ready() {
			// Delta arrived before any full snapshot; ask for one.
			w.Resync()
			return
		}
		w.mirror.Apply(&models.Update{Incremental: msg.Incremental, Snapshot: snap})
		if w.onUpdate != nil {
			w.onUpdate(w.mirror.Snapshot())
		}

	case models.MsgPing:
		_ = conn.WriteJSON(models.WebSocketMessage{Type: models.MsgPong})

	case models.MsgError:
		log.Printf("[SYNC] server error: %s", msg.Error)
	}
}

func (w *Watcher) requestStats(conn *websocket.Conn, full bool) error {
	return conn.WriteJSON(models.WebSocketMessage{
		Type: models.MsgRequestStats,
		Full: full,
	})
}

func (w *Watcher) dialURL() string {
	if w.token == "" {
		return w.url
	}
	return w.url + "?token=" + w.token
}
