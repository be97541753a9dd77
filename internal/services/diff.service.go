package services

import (
	"math"

	"nigran/internal/config"
	"nigran/internal/models"
)

// FieldKind tags how a category is compared when deciding whether a change
// is worth retransmitting. Enum-valued status fields ride along as sub-rules
// of the scalar and keyed kinds: any value change is significant.
type FieldKind int

const (
	// KindScalar compares a numeric usage field against an absolute
	// threshold, strictly: a change equal to the threshold is not
	// significant.
	KindScalar FieldKind = iota
	// KindKeyedCollection compares list entries by key identity; a
	// membership change is always significant, retained keys recurse
	// into their own sub-field rules.
	KindKeyedCollection
	// KindVolatile is always significant (monotonic counters, rankings).
	KindVolatile
	// KindStructural is significant on any deep inequality; used for
	// slow-moving identity data.
	KindStructural
)

type categoryRule struct {
	kind    FieldKind
	changed func(f *SignificanceFilter, old, fresh *models.Snapshot) bool
}

// categoryRules is the dispatch table mapping category to its comparison
// variant and rule. New field types are added by extending the table, not by
// branching on runtime shape. Volatile categories carry no rule; the kind
// alone decides.
var categoryRules = map[models.Category]categoryRule{
	models.CategoryCPU:             {KindScalar, (*SignificanceFilter).cpuChanged},
	models.CategoryMemory:          {KindScalar, (*SignificanceFilter).memoryChanged},
	models.CategoryHealth:          {KindScalar, (*SignificanceFilter).healthChanged},
	models.CategoryDisk:            {KindKeyedCollection, (*SignificanceFilter).disksChanged},
	models.CategoryServices:        {KindKeyedCollection, (*SignificanceFilter).servicesChanged},
	models.CategoryPorts:           {KindKeyedCollection, (*SignificanceFilter).portsChanged},
	models.CategoryMemoryProcesses: {KindKeyedCollection, (*SignificanceFilter).processesChanged},
	models.CategoryNetwork:         {KindVolatile, nil},
	models.CategoryStatsSummary:    {KindVolatile, nil},
	models.CategorySystem:          {KindStructural, (*SignificanceFilter).systemChanged},
}

// KindOf reports the comparison variant registered for a category.
func KindOf(c models.Category) (FieldKind, bool) {
	r, ok := categoryRules[c]
	return r.kind, ok
}

// SignificanceFilter decides, per category, whether the fresh value differs
// enough from the old one to justify retransmission.
type SignificanceFilter struct {
	thresholds config.Thresholds
}

func NewSignificanceFilter(thresholds config.Thresholds) *SignificanceFilter {
	return &SignificanceFilter{thresholds: thresholds}
}

// exceeds applies the strict-> rule shared by every scalar comparison.
func exceeds(old, fresh, threshold float64) bool {
	return math.Abs(fresh-old) > threshold
}

// Changed reports whether category should be retransmitted given the old and
// fresh snapshots. A category with no prior value is always significant;
// everything else dispatches through the rule table.
func (f *SignificanceFilter) Changed(category models.Category, old, fresh *models.Snapshot) bool {
	if !fresh.Has(category) {
		return false
	}
	if !old.Has(category) {
		return true
	}

	rule, ok := categoryRules[category]
	if !ok {
		return false
	}
	if rule.kind == KindVolatile {
		return true
	}
	return rule.changed(f, old, fresh)
}

func (f *SignificanceFilter) cpuChanged(old, fresh *models.Snapshot) bool {
	return exceeds(old.CPU.UsagePercent, fresh.CPU.UsagePercent, f.thresholds.CPUPercent)
}

func (f *SignificanceFilter) memoryChanged(old, fresh *models.Snapshot) bool {
	return exceeds(old.Memory.UsedPercent, fresh.Memory.UsedPercent, f.thresholds.MemoryPercent)
}

// healthChanged applies the score threshold plus the status band enum
// sub-rule.
func (f *SignificanceFilter) healthChanged(old, fresh *models.Snapshot) bool {
	return exceeds(old.Health.Score, fresh.Health.Score, f.thresholds.HealthScore) ||
		old.Health.Status != fresh.Health.Status
}

func (f *SignificanceFilter) systemChanged(old, fresh *models.Snapshot) bool {
	return *old.System != *fresh.System
}

// disksChanged keys partitions by mountpoint; membership changes are always
// significant, retained partitions apply the disk percent threshold.
func (f *SignificanceFilter) disksChanged(oldSnap, freshSnap *models.Snapshot) bool {
	old, fresh := oldSnap.Disk, freshSnap.Disk
	if len(old) != len(fresh) {
		return true
	}
	byMount := make(map[string]models.DiskStatus, len(old))
	for _, d := range old {
		byMount[d.Mountpoint] = d
	}
	for _, d := range fresh {
		prev, ok := byMount[d.Mountpoint]
		if !ok {
			return true
		}
		if exceeds(prev.UsedPercent, d.UsedPercent, f.thresholds.DiskPercent) {
			return true
		}
	}
	return false
}

// servicesChanged keys by service name with the status enum as sub-rule.
func (f *SignificanceFilter) servicesChanged(oldSnap, freshSnap *models.Snapshot) bool {
	old, fresh := oldSnap.Services, freshSnap.Services
	if len(old) != len(fresh) {
		return true
	}
	byName := make(map[string]models.ServiceStatus, len(old))
	for _, s := range old {
		byName[s.Name] = s
	}
	for _, s := range fresh {
		prev, ok := byName[s.Name]
		if !ok {
			return true
		}
		if prev.Status != s.Status {
			return true
		}
	}
	return false
}

// portsChanged keys by port number; the status enum and owning process are
// the sub-rules. Connection count churn alone is not significant.
func (f *SignificanceFilter) portsChanged(oldSnap, freshSnap *models.Snapshot) bool {
	old, fresh := oldSnap.Ports, freshSnap.Ports
	if len(old) != len(fresh) {
		return true
	}
	byPort := make(map[int]models.PortStatus, len(old))
	for _, p := range old {
		byPort[p.Port] = p
	}
	for _, p := range fresh {
		prev, ok := byPort[p.Port]
		if !ok {
			return true
		}
		if prev.Status != p.Status || prev.PID != p.PID || prev.ProcessName != p.ProcessName {
			return true
		}
	}
	return false
}

// processesChanged keys by PID; membership changes (a process entering or
// leaving the top list) are significant, retained PIDs apply the per-process
// cpu, memory and RSS thresholds plus the status enum.
func (f *SignificanceFilter) processesChanged(oldSnap, freshSnap *models.Snapshot) bool {
	old, fresh := oldSnap.MemoryProcesses, freshSnap.MemoryProcesses
	if len(old) != len(fresh) {
		return true
	}
	byPID := make(map[int32]models.ProcessStatus, len(old))
	for _, p := range old {
		byPID[p.PID] = p
	}
	for _, p := range fresh {
		prev, ok := byPID[p.PID]
		if !ok {
			return true
		}
		if exceeds(prev.CPUPercent, p.CPUPercent, f.thresholds.ProcessCPU) ||
			exceeds(float64(prev.MemPercent), float64(p.MemPercent), f.thresholds.ProcessMemory) ||
			exceeds(prev.RSSMB, p.RSSMB, f.thresholds.ProcessRSSMB) ||
			prev.Status != p.Status {
			return true
		}
	}
	return false
}
