package services

import (
	"sync"
	"time"

	"nigran/internal/models"
)

// sessionBaseline is the last state known to have been delivered to one
// session. Its mutex serializes the encode-and-update operation so at most
// one is in flight per session; different sessions never contend.
type sessionBaseline struct {
	mu              sync.Mutex
	lastDelivered   *models.Snapshot
	lastDeliveredAt time.Time
	staleSince      time.Time
}

// BaselineRegistry owns every session's diff baseline and produces updates
// against them. It is the only shared mutable state with concurrent writers;
// the registry-level lock guards only the session map.
type BaselineRegistry struct {
	mu        sync.Mutex
	sessions  map[string]*sessionBaseline
	filter    *SignificanceFilter
	staleness time.Duration
	now       func() time.Time
}

func NewBaselineRegistry(filter *SignificanceFilter, staleness time.Duration) *BaselineRegistry {
	return &BaselineRegistry{
		sessions:  make(map[string]*sessionBaseline),
		filter:    filter,
		staleness: staleness,
		now:       time.Now,
	}
}

func (r *BaselineRegistry) session(sessionID string) *sessionBaseline {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.sessions[sessionID]
	if !ok {
		b = &sessionBaseline{}
		r.sessions[sessionID] = b
	}
	return b
}

// ComputeUpdate builds the update the session needs given the fresh
// snapshot. A session with no baseline, or one whose baseline aged past the
// staleness window, gets a full snapshot. Otherwise only categories the
// significance filter accepts are included; a delta with no categories is a
// valid no-op tick. The baseline itself is untouched here: it advances only
// when the caller commits the update as delivered, so an update that never
// reached the transport is recomputed into the next pass instead of going
// missing.
func (r *BaselineRegistry) ComputeUpdate(sessionID string, fresh *models.Snapshot) *models.Update {
	b := r.session(sessionID)
	b.mu.Lock()
	defer b.mu.Unlock()

	now := r.now()

	if !b.staleSince.IsZero() && now.Sub(b.staleSince) > r.staleness {
		// Transport was broken for longer than the staleness window:
		// the remote state can no longer be trusted.
		b.lastDelivered = nil
		b.staleSince = time.Time{}
	}
	if b.lastDelivered != nil && now.Sub(b.lastDeliveredAt) > r.staleness {
		b.lastDelivered = nil
	}

	if b.lastDelivered == nil {
		return models.Full(fresh)
	}

	delta := &models.Snapshot{Timestamp: fresh.Timestamp}
	for _, category := range models.Categories() {
		if r.filter.Changed(category, b.lastDelivered, fresh) {
			delta.Copy(category, fresh)
		}
	}
	return models.Delta(delta)
}

// Commit records that the update reached the session's transport and
// advances the baseline to exactly what the update carried. Merging only
// what was sent, not the whole fresh snapshot, keeps values filtered out as
// noise at their last delivered state, or sub-threshold drift would silently
// accumulate on the remote side.
func (r *BaselineRegistry) Commit(sessionID string, upd *models.Update) {
	if upd.Empty() {
		return
	}

	b := r.session(sessionID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !upd.Incremental {
		b.lastDelivered = upd.Snapshot.Clone()
	} else {
		if b.lastDelivered == nil {
			// The baseline was dropped between compute and commit; the
			// next ComputeUpdate falls back to a full snapshot anyway.
			return
		}
		b.lastDelivered.Merge(upd.Snapshot)
	}
	b.lastDeliveredAt = r.now()
	b.staleSince = time.Time{}
}

// MarkStale records a failed delivery. The baseline is retained so a prompt
// recovery still gets a cheap delta; once the staleness window elapses the
// next ComputeUpdate falls back to a full snapshot.
func (r *BaselineRegistry) MarkStale(sessionID string) {
	b := r.session(sessionID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.staleSince.IsZero() {
		b.staleSince = r.now()
	}
}

// ForceFull drops the session's baseline so its next update is a full
// snapshot. Used for explicit client resync requests.
func (r *BaselineRegistry) ForceFull(sessionID string) {
	b := r.session(sessionID)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastDelivered = nil
	b.staleSince = time.Time{}
}

// Remove destroys the session's baseline entirely.
func (r *BaselineRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Sessions returns the IDs currently holding a baseline.
func (r *BaselineRegistry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
