package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nigran/internal/config"
	"nigran/internal/models"
)

func testFilter() *SignificanceFilter {
	return NewSignificanceFilter(config.Default().Thresholds)
}

func snapWithCPU(usage float64) *models.Snapshot {
	return &models.Snapshot{
		Timestamp: time.Now(),
		CPU:       &models.CPUStatus{UsagePercent: usage, CoreCount: 4},
	}
}

func TestCPUThresholdIsStrict(t *testing.T) {
	f := testFilter()
	old := snapWithCPU(50.0)

	assert.False(t, f.Changed(models.CategoryCPU, old, snapWithCPU(50.0)))
	assert.False(t, f.Changed(models.CategoryCPU, old, snapWithCPU(50.9)))
	// Exactly the threshold apart is still not significant.
	assert.False(t, f.Changed(models.CategoryCPU, old, snapWithCPU(51.0)))
	assert.False(t, f.Changed(models.CategoryCPU, old, snapWithCPU(49.0)))

	assert.True(t, f.Changed(models.CategoryCPU, old, snapWithCPU(51.1)))
	assert.True(t, f.Changed(models.CategoryCPU, old, snapWithCPU(48.9)))
}

func TestFirstObservationIsSignificant(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{Timestamp: time.Now()}

	assert.True(t, f.Changed(models.CategoryCPU, old, snapWithCPU(0.1)))
}

func TestAbsentFreshCategoryIsNeverSignificant(t *testing.T) {
	f := testFilter()
	old := snapWithCPU(50.0)
	fresh := &models.Snapshot{Timestamp: time.Now()}

	assert.False(t, f.Changed(models.CategoryCPU, old, fresh))
}

func TestHealthStatusBandChangeAlone(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{
		Health: &models.HealthStatus{Score: 80, Status: models.HealthExcellent},
	}
	// Score moved by less than the threshold but the band flipped.
	fresh := &models.Snapshot{
		Health: &models.HealthStatus{Score: 79.5, Status: models.HealthGood},
	}

	assert.True(t, f.Changed(models.CategoryHealth, old, fresh))

	same := &models.Snapshot{
		Health: &models.HealthStatus{Score: 80.5, Status: models.HealthExcellent},
	}
	assert.False(t, f.Changed(models.CategoryHealth, old, same))
}

func TestDiskUsesTighterThreshold(t *testing.T) {
	f := testFilter()
	disk := func(percent float64) *models.Snapshot {
		return &models.Snapshot{Disk: []models.DiskStatus{
			{Device: "/dev/sda1", Mountpoint: "/", UsedPercent: percent},
		}}
	}
	old := disk(70.0)

	assert.False(t, f.Changed(models.CategoryDisk, old, disk(70.1)))
	assert.True(t, f.Changed(models.CategoryDisk, old, disk(70.2)))
}

func TestDiskMembershipChange(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{Disk: []models.DiskStatus{
		{Mountpoint: "/", UsedPercent: 70},
	}}
	fresh := &models.Snapshot{Disk: []models.DiskStatus{
		{Mountpoint: "/", UsedPercent: 70},
		{Mountpoint: "/data", UsedPercent: 10},
	}}

	assert.True(t, f.Changed(models.CategoryDisk, old, fresh))

	// Same count but a different mountpoint is also a membership change.
	swapped := &models.Snapshot{Disk: []models.DiskStatus{
		{Mountpoint: "/mnt", UsedPercent: 70},
	}}
	assert.True(t, f.Changed(models.CategoryDisk, old, swapped))
}

func TestServiceStatusEnumChange(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{Services: []models.ServiceStatus{
		{Name: "nginx", Status: "active", Active: true},
		{Name: "redis-server", Status: "active", Active: true},
	}}
	fresh := old.Clone()
	fresh.Services[1].Status = "inactive"
	fresh.Services[1].Active = false

	assert.True(t, f.Changed(models.CategoryServices, old, fresh))
	assert.False(t, f.Changed(models.CategoryServices, old, old.Clone()))
}

func TestPortConnectionChurnIsNotSignificant(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{Ports: []models.PortStatus{
		{Port: 22, Service: "SSH", Status: models.PortOpen, PID: 900, ProcessName: "sshd", Connections: 2},
	}}
	fresh := old.Clone()
	fresh.Ports[0].Connections = 7

	assert.False(t, f.Changed(models.CategoryPorts, old, fresh))

	fresh.Ports[0].Status = models.PortClosed
	assert.True(t, f.Changed(models.CategoryPorts, old, fresh))
}

func TestPortOwnerChangeIsSignificant(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{Ports: []models.PortStatus{
		{Port: 8080, Service: "HTTP-Alt", Status: models.PortOpen, PID: 1200, ProcessName: "nigran"},
	}}
	fresh := old.Clone()
	fresh.Ports[0].PID = 1300

	assert.True(t, f.Changed(models.CategoryPorts, old, fresh))
}

func TestProcessListMembershipAndDrift(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{MemoryProcesses: []models.ProcessStatus{
		{PID: 10, Name: "postgres", CPUPercent: 3.0, MemPercent: 12.0, RSSMB: 480, Status: "sleeping"},
	}}

	// Sub-threshold drift on a retained PID.
	quiet := old.Clone()
	quiet.MemoryProcesses[0].CPUPercent = 3.8
	assert.False(t, f.Changed(models.CategoryMemoryProcesses, old, quiet))

	// RSS moved past the threshold.
	grown := old.Clone()
	grown.MemoryProcesses[0].RSSMB = 482
	assert.True(t, f.Changed(models.CategoryMemoryProcesses, old, grown))

	// A new PID in the top list.
	joined := old.Clone()
	joined.MemoryProcesses = append(joined.MemoryProcesses, models.ProcessStatus{PID: 11, Name: "java"})
	assert.True(t, f.Changed(models.CategoryMemoryProcesses, old, joined))
}

func TestVolatileCategoriesAlwaysResend(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{
		Network:      &models.AggregatedNetworkStatus{BytesSent: 100},
		StatsSummary: &models.StatsSummary{TotalProcesses: 200},
	}
	fresh := old.Clone()

	assert.True(t, f.Changed(models.CategoryNetwork, old, fresh))
	assert.True(t, f.Changed(models.CategoryStatsSummary, old, fresh))
}

func TestSystemDeepEquality(t *testing.T) {
	f := testFilter()
	old := &models.Snapshot{System: &models.SystemInfo{
		Hostname: "web-1", KernelVersion: "6.8.0-45", UptimeSeconds: 1000,
	}}
	fresh := old.Clone()
	assert.False(t, f.Changed(models.CategorySystem, old, fresh))

	fresh.System.KernelVersion = "6.8.0-47"
	assert.True(t, f.Changed(models.CategorySystem, old, fresh))
}

func TestEveryCategoryHasARule(t *testing.T) {
	for _, c := range models.Categories() {
		_, ok := KindOf(c)
		require.True(t, ok, "category %s missing from dispatch table", c)
	}

	kind := func(c models.Category) FieldKind {
		k, _ := KindOf(c)
		return k
	}
	assert.Equal(t, KindScalar, kind(models.CategoryCPU))
	assert.Equal(t, KindKeyedCollection, kind(models.CategoryPorts))
	assert.Equal(t, KindVolatile, kind(models.CategoryNetwork))
	assert.Equal(t, KindStructural, kind(models.CategorySystem))

	_, ok := KindOf(models.Category("bogus"))
	assert.False(t, ok)
}
