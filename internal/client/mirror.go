// Package client maintains a local authoritative copy of a remote host's
// telemetry, reconciled from full snapshots and incremental deltas received
// over the stats channel.
package client

import (
	"sync"

	"nigran/internal/models"
)

// Mirror is the client-side authoritative snapshot copy. Consumers read only
// the mirror, never the raw wire payloads, and never observe a merge in
// progress: deltas are applied to a private copy which is then swapped in.
type Mirror struct {
	mu   sync.RWMutex
	snap *models.Snapshot
}

func NewMirror() *Mirror {
	return &Mirror{}
}

// Apply merges an update into the mirror. A full update replaces the mirror
// wholesale; a delta overwrites only the categories it carries. Categories
// absent from a delta are left untouched: absence means "unchanged".
func (m *Mirror) Apply(u *models.Update) {
	if u == nil || u.Snapshot == nil {
		return
	}

	if !u.Incremental {
		fresh := u.Snapshot.Clone()
		m.mu.Lock()
		m.snap = fresh
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		// A delta with no prior full cannot be reconciled; keep waiting
		// for the resync the controller will have requested.
		return
	}
	merged := m.snap.Clone()
	merged.Merge(u.Snapshot)
	m.snap = merged
}

// Snapshot returns a copy of the current mirror state, or nil when no full
// snapshot has arrived yet.
func (m *Mirror) Snapshot() *models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone()
}

// Ready reports whether the mirror has been seeded by a full snapshot.
func (m *Mirror) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap != nil
}
