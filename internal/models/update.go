package models

// Update is the per-session result of one encode pass: either a full snapshot
// (Incremental=false) or only the categories judged significant since the
// session's baseline. An incremental update with no categories is a valid
// no-op tick and is simply not transmitted.
type Update struct {
	Incremental bool
	Snapshot    *Snapshot
}

// Full wraps a snapshot as a full (non-incremental) update.
func Full(s *Snapshot) *Update {
	return &Update{Incremental: false, Snapshot: s}
}

// Delta wraps changed categories as an incremental update.
func Delta(s *Snapshot) *Update {
	return &Update{Incremental: true, Snapshot: s}
}

// Empty reports whether the update carries nothing worth transmitting.
func (u *Update) Empty() bool {
	return u == nil || (u.Incremental && u.Snapshot.Empty())
}
