package services

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"nigran/internal/config"
	"nigran/internal/models"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Session represents one connected viewing session.
type Session struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan models.WebSocketMessage
	visible atomic.Bool
}

func NewSession(id string, conn *websocket.Conn) *Session {
	s := &Session{
		ID:   id,
		Conn: conn,
		Send: make(chan models.WebSocketMessage, 64),
	}
	s.visible.Store(true)
	return s
}

// SetVisible records whether the session's viewer is currently looking at
// the data; the hub slows its cadence when nobody is.
func (s *Session) SetVisible(v bool) { s.visible.Store(v) }

func (s *Session) Visible() bool { return s.visible.Load() }

type statsRequest struct {
	sessionID string
	full      bool
}

// Hub drives the periodic broadcast: one snapshot per tick, fanned out to
// every session as the delta (or full) that session needs.
type Hub struct {
	cache    *CacheManager
	registry *BaselineRegistry
	history  *HistoryCollector
	cfg      *config.Config

	mu       sync.RWMutex
	sessions map[string]*Session

	register   chan *Session
	unregister chan *Session
	requests   chan statsRequest
	done       chan struct{}
}

func NewHub(cache *CacheManager, registry *BaselineRegistry, cfg *config.Config) *Hub {
	return &Hub{
		cache:      cache,
		registry:   registry,
		cfg:        cfg,
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		requests:   make(chan statsRequest, 64),
		done:       make(chan struct{}),
	}
}

// SetHistory attaches a rolling-window collector fed one point per tick.
func (h *Hub) SetHistory(history *HistoryCollector) { h.history = history }

// Register adds a session to the hub. A session with the same ID (a
// reconnect) replaces the previous entry.
func (h *Hub) Register(s *Session) { h.register <- s }

// Unregister removes the session. Session IDs are stable across reconnects,
// so removal only applies while this exact session is still the registered
// one; a lingering pump from a replaced connection must not tear down its
// successor. The baseline is kept but marked stale so a prompt reconnect
// under the same ID still gets a cheap delta.
func (h *Hub) Unregister(s *Session) { h.unregister <- s }

// RequestStats answers an explicit request_stats message from a session.
func (h *Hub) RequestStats(sessionID string, full bool) {
	select {
	case h.requests <- statsRequest{sessionID: sessionID, full: full}:
	default:
		log.Printf("[WS] request queue full, dropping request from %s", sessionID)
	}
}

// Stop shuts the hub's event loop down.
func (h *Hub) Stop() { close(h.done) }

// Run is the hub event loop. It owns the tick timer; the period switches
// between the active and idle cadence depending on session visibility.
func (h *Hub) Run() {
	timer := time.NewTimer(h.period())
	defer timer.Stop()

	for {
		select {
		case <-h.done:
			return

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s.ID] = s
			total := len(h.sessions)
			h.mu.Unlock()
			log.Printf("[WS] session connected: %s (total: %d)", s.ID, total)

		case s := <-h.unregister:
			h.mu.Lock()
			removed := false
			if current, exists := h.sessions[s.ID]; exists && current == s {
				delete(h.sessions, s.ID)
				removed = true
			}
			total := len(h.sessions)
			h.mu.Unlock()
			close(s.Send)
			if removed {
				h.registry.MarkStale(s.ID)
				log.Printf("[WS] session disconnected: %s (total: %d)", s.ID, total)
			} else {
				log.Printf("[WS] stale connection for %s discarded (total: %d)", s.ID, total)
			}

		case req := <-h.requests:
			h.answerRequest(req)

		case <-timer.C:
			h.tick()
			timer.Reset(h.period())
		}
	}
}

// period returns the active cadence while at least one session reports
// visibility, the idle cadence otherwise.
func (h *Hub) period() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		if s.Visible() {
			return h.cfg.ActivePeriod
		}
	}
	return h.cfg.IdlePeriod
}

// tick performs one broadcast pass: a single snapshot assembled once, then
// per-session encoding fanned out through a bounded worker pool. One slow
// session cannot delay the others beyond pool capacity.
func (h *Hub) tick() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	if len(sessions) == 0 {
		return
	}

	snap := h.cache.Snapshot()
	if h.history != nil {
		h.history.Record(snap)
	}

	sem := make(chan struct{}, h.cfg.Workers)
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		sem <- struct{}{}
		go func(s *Session) {
			defer wg.Done()
			defer func() { <-sem }()
			h.deliver(s, h.registry.ComputeUpdate(s.ID, snap))
		}(s)
	}
	wg.Wait()
}

// answerRequest serves an explicit request_stats: always responds, even when
// nothing changed, so the client's watchdog sees traffic.
func (h *Hub) answerRequest(req statsRequest) {
	h.mu.RLock()
	s, ok := h.sessions[req.sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if req.full {
		h.registry.ForceFull(req.sessionID)
	}

	snap := h.cache.Snapshot()
	upd := h.registry.ComputeUpdate(req.sessionID, snap)
	h.send(s, upd)
}

// deliver transmits a computed update, skipping no-op ticks entirely.
func (h *Hub) deliver(s *Session, upd *models.Update) {
	if upd.Empty() {
		return
	}
	h.send(s, upd)
}

func (h *Hub) send(s *Session, upd *models.Update) {
	data, err := json.Marshal(upd.Snapshot)
	if err != nil {
		log.Printf("[WS] marshal update for %s: %v", s.ID, err)
		return
	}

	msg := models.WebSocketMessage{
		Type:        models.MsgStatsUpdate,
		Timestamp:   upd.Snapshot.Timestamp,
		Incremental: upd.Incremental,
		Data:        data,
	}

	select {
	case s.Send <- msg:
		h.registry.Commit(s.ID, upd)
	default:
		// Send buffer full: drop the update. The baseline only advances
		// on commit, so the dropped changes fold into the next tick's
		// delta instead of going missing on the remote side.
		h.registry.MarkStale(s.ID)
		log.Printf("[WS] send buffer full for %s, update dropped", s.ID)
	}
}
