package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nigran/internal/models"
)

func newTestRegistry(clock *fakeClock) *BaselineRegistry {
	r := NewBaselineRegistry(testFilter(), 2*time.Minute)
	r.now = clock.now
	return r
}

func fullReading(cpuUsage float64, svcStatus string) *models.Snapshot {
	return &models.Snapshot{
		Timestamp: time.Now(),
		CPU:       &models.CPUStatus{UsagePercent: cpuUsage, CoreCount: 4},
		Memory:    &models.MemoryStatus{UsedPercent: 40},
		Services: []models.ServiceStatus{
			{Name: "nginx", Status: svcStatus, Active: svcStatus == "active"},
		},
		System: &models.SystemInfo{Hostname: "web-1"},
	}
}

// computeAndCommit plays the role of the hub's successful send path.
func computeAndCommit(r *BaselineRegistry, id string, fresh *models.Snapshot) *models.Update {
	u := r.ComputeUpdate(id, fresh)
	r.Commit(id, u)
	return u
}

func TestFirstUpdateIsFull(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	u := r.ComputeUpdate("s1", fullReading(10, "active"))
	require.NotNil(t, u)
	assert.False(t, u.Incremental)
	assert.True(t, u.Snapshot.Has(models.CategoryCPU))
	assert.True(t, u.Snapshot.Has(models.CategorySystem))
}

func TestQuietTickYieldsEmptyDelta(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))

	// Sub-threshold drift on every changed field.
	u := r.ComputeUpdate("s1", fullReading(10.4, "active"))
	require.True(t, u.Incremental)
	assert.True(t, u.Empty())
}

func TestDeltaCarriesOnlyChangedCategories(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))
	u := r.ComputeUpdate("s1", fullReading(12.0, "inactive"))

	require.True(t, u.Incremental)
	assert.True(t, u.Snapshot.Has(models.CategoryCPU))
	assert.True(t, u.Snapshot.Has(models.CategoryServices))
	assert.False(t, u.Snapshot.Has(models.CategoryMemory))
	assert.False(t, u.Snapshot.Has(models.CategorySystem))
}

// Drift below the threshold must not accumulate invisibly: the baseline keeps
// the last transmitted value, so repeated small steps eventually cross it.
func TestSubThresholdDriftEventuallyCrosses(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))
	for _, usage := range []float64{10.4, 10.8} {
		u := computeAndCommit(r, "s1", fullReading(usage, "active"))
		assert.True(t, u.Empty(), "usage %.1f still within threshold of 10.0", usage)
	}

	// 11.2 is more than 1.0 away from the delivered 10.0, not from 10.8.
	u := r.ComputeUpdate("s1", fullReading(11.2, "active"))
	require.True(t, u.Incremental)
	assert.True(t, u.Snapshot.Has(models.CategoryCPU))
	assert.Equal(t, 11.2, u.Snapshot.CPU.UsagePercent)
}

// The baseline must reflect what the session actually received, not what the
// encoder computed. An update that is never committed (the transport dropped
// it) stays pending and folds into every subsequent delta until one lands.
func TestUncommittedUpdateDoesNotAdvanceBaseline(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))

	dropped := r.ComputeUpdate("s1", fullReading(15.0, "active"))
	require.True(t, dropped.Snapshot.Has(models.CategoryCPU))
	// Not committed: the send never happened.

	u := r.ComputeUpdate("s1", fullReading(15.0, "active"))
	require.True(t, u.Incremental)
	assert.True(t, u.Snapshot.Has(models.CategoryCPU), "change must still be pending")
	assert.Equal(t, 15.0, u.Snapshot.CPU.UsagePercent)
}

func TestDroppedUpdateIsRecoveredByLaterTicks(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	remote := &models.Snapshot{}
	apply := func(u *models.Update) {
		if u.Empty() {
			return
		}
		if !u.Incremental {
			remote = u.Snapshot.Clone()
			return
		}
		remote.Merge(u.Snapshot)
	}

	apply(computeAndCommit(r, "s1", fullReading(10.0, "active")))
	require.Equal(t, "active", remote.Services[0].Status)

	// The service flips, but this delta never reaches the transport.
	dropped := r.ComputeUpdate("s1", fullReading(10.0, "inactive"))
	require.True(t, dropped.Snapshot.Has(models.CategoryServices))
	r.MarkStale("s1")

	// Normal delivery resumes; the missed change must reappear promptly,
	// not wait for a staleness-window full resend.
	clock.advance(5 * time.Second)
	apply(computeAndCommit(r, "s1", fullReading(10.0, "inactive")))
	assert.Equal(t, "inactive", remote.Services[0].Status)

	// And later quiet ticks stay quiet.
	clock.advance(5 * time.Second)
	u := r.ComputeUpdate("s1", fullReading(10.0, "inactive"))
	assert.True(t, u.Empty())
}

func TestBaselinesAreIndependentPerSession(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))

	// A brand new session gets a full snapshot from the same reading.
	u := r.ComputeUpdate("s2", fullReading(10.0, "active"))
	assert.False(t, u.Incremental)
}

func TestForceFullDropsBaseline(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))
	r.ForceFull("s1")

	u := r.ComputeUpdate("s1", fullReading(10.0, "active"))
	assert.False(t, u.Incremental)
}

func TestStaleSessionFallsBackToFull(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))
	r.MarkStale("s1")

	// Within the window the baseline still serves deltas.
	clock.advance(time.Minute)
	u := r.ComputeUpdate("s1", fullReading(10.0, "active"))
	assert.True(t, u.Incremental)

	clock.advance(3 * time.Minute)
	u = r.ComputeUpdate("s1", fullReading(10.0, "active"))
	assert.False(t, u.Incremental, "staleness window elapsed, remote state untrusted")
}

func TestCommitClearsStaleness(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))
	r.MarkStale("s1")

	// A delivered update clears the stale mark.
	computeAndCommit(r, "s1", fullReading(12.0, "active"))

	clock.advance(time.Minute)
	u := r.ComputeUpdate("s1", fullReading(14.0, "active"))
	assert.True(t, u.Incremental)
}

// A session receiving nothing but empty deltas never advances its delivery
// timestamp, so the staleness window eventually forces a refreshing full.
func TestIdleBaselineAgesIntoFull(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))

	clock.advance(time.Minute)
	u := computeAndCommit(r, "s1", fullReading(10.0, "active"))
	assert.True(t, u.Incremental)

	clock.advance(2 * time.Minute)
	u = r.ComputeUpdate("s1", fullReading(10.0, "active"))
	assert.False(t, u.Incremental)
}

func TestRemoveDestroysBaseline(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	computeAndCommit(r, "s1", fullReading(10.0, "active"))
	require.Contains(t, r.Sessions(), "s1")

	r.Remove("s1")
	assert.NotContains(t, r.Sessions(), "s1")

	u := r.ComputeUpdate("s1", fullReading(10.0, "active"))
	assert.False(t, u.Incremental)
}

// Replaying the server's updates against a client mirror must converge on the
// server's own baseline, category by category.
func TestClientConvergesThroughDeltas(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := newTestRegistry(clock)

	remote := &models.Snapshot{}
	apply := func(u *models.Update) {
		if !u.Incremental {
			remote = u.Snapshot.Clone()
			return
		}
		remote.Merge(u.Snapshot)
	}

	apply(computeAndCommit(r, "s1", fullReading(10.0, "active")))

	apply(computeAndCommit(r, "s1", fullReading(10.4, "active")))
	assert.Equal(t, 10.0, remote.CPU.UsagePercent,
		"the 10.4 step was noise and must not have reached the remote")

	apply(computeAndCommit(r, "s1", fullReading(12.0, "inactive")))
	assert.Equal(t, 12.0, remote.CPU.UsagePercent)
	assert.Equal(t, "inactive", remote.Services[0].Status)
}
