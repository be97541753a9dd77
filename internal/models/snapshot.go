package models

import "time"

// Category names a top-level section of a Snapshot. Categories are the unit
// of delta transmission: a category judged changed is resent whole.
type Category string

const (
	CategoryCPU             Category = "cpu"
	CategoryMemory          Category = "memory"
	CategoryDisk            Category = "disk"
	CategoryNetwork         Category = "network"
	CategoryHealth          Category = "health"
	CategoryStatsSummary    Category = "stats_summary"
	CategoryServices        Category = "services"
	CategoryPorts           Category = "ports"
	CategoryMemoryProcesses Category = "memory_processes"
	CategorySystem          Category = "system"
)

// Categories returns all snapshot categories in wire order.
func Categories() []Category {
	return []Category{
		CategoryCPU, CategoryMemory, CategoryDisk, CategoryNetwork,
		CategoryHealth, CategoryStatsSummary, CategoryServices,
		CategoryPorts, CategoryMemoryProcesses, CategorySystem,
	}
}

// Snapshot is one complete telemetry reading. A nil category means the
// category is absent (not collected, or unchanged in a delta). A snapshot is
// never mutated after it is produced; Merge and Clone always work on copies.
type Snapshot struct {
	Timestamp       time.Time                `json:"timestamp"`
	CPU             *CPUStatus               `json:"cpu,omitempty"`
	Memory          *MemoryStatus            `json:"memory,omitempty"`
	Disk            []DiskStatus             `json:"disk,omitempty"`
	Network         *AggregatedNetworkStatus `json:"network,omitempty"`
	Health          *HealthStatus            `json:"health,omitempty"`
	StatsSummary    *StatsSummary            `json:"stats_summary,omitempty"`
	Services        []ServiceStatus          `json:"services,omitempty"`
	Ports           []PortStatus             `json:"ports,omitempty"`
	MemoryProcesses []ProcessStatus          `json:"memory_processes,omitempty"`
	System          *SystemInfo              `json:"system,omitempty"`
}

// Has reports whether the snapshot carries a value for the category.
func (s *Snapshot) Has(c Category) bool {
	if s == nil {
		return false
	}
	switch c {
	case CategoryCPU:
		return s.CPU != nil
	case CategoryMemory:
		return s.Memory != nil
	case CategoryDisk:
		return s.Disk != nil
	case CategoryNetwork:
		return s.Network != nil
	case CategoryHealth:
		return s.Health != nil
	case CategoryStatsSummary:
		return s.StatsSummary != nil
	case CategoryServices:
		return s.Services != nil
	case CategoryPorts:
		return s.Ports != nil
	case CategoryMemoryProcesses:
		return s.MemoryProcesses != nil
	case CategorySystem:
		return s.System != nil
	}
	return false
}

// Empty reports whether no category is present at all.
func (s *Snapshot) Empty() bool {
	for _, c := range Categories() {
		if s.Has(c) {
			return false
		}
	}
	return true
}

// Copy copies a single category value from src into s.
func (s *Snapshot) Copy(c Category, src *Snapshot) {
	switch c {
	case CategoryCPU:
		s.CPU = src.CPU.clone()
	case CategoryMemory:
		v := *src.Memory
		s.Memory = &v
	case CategoryDisk:
		s.Disk = append([]DiskStatus(nil), src.Disk...)
	case CategoryNetwork:
		s.Network = src.Network.clone()
	case CategoryHealth:
		s.Health = src.Health.clone()
	case CategoryStatsSummary:
		v := *src.StatsSummary
		s.StatsSummary = &v
	case CategoryServices:
		s.Services = append([]ServiceStatus(nil), src.Services...)
	case CategoryPorts:
		s.Ports = append([]PortStatus(nil), src.Ports...)
	case CategoryMemoryProcesses:
		s.MemoryProcesses = append([]ProcessStatus(nil), src.MemoryProcesses...)
	case CategorySystem:
		v := *src.System
		s.System = &v
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Timestamp: s.Timestamp}
	for _, c := range Categories() {
		if s.Has(c) {
			out.Copy(c, s)
		}
	}
	return out
}

// Merge overwrites every category present in delta into s. Categories absent
// from delta are left untouched: absence means "unchanged", not "unknown".
func (s *Snapshot) Merge(delta *Snapshot) {
	if delta == nil {
		return
	}
	if !delta.Timestamp.IsZero() {
		s.Timestamp = delta.Timestamp
	}
	for _, c := range Categories() {
		if delta.Has(c) {
			s.Copy(c, delta)
		}
	}
}

func (c *CPUStatus) clone() *CPUStatus {
	if c == nil {
		return nil
	}
	v := *c
	v.PerCore = append([]float64(nil), c.PerCore...)
	return &v
}

func (n *AggregatedNetworkStatus) clone() *AggregatedNetworkStatus {
	if n == nil {
		return nil
	}
	v := *n
	v.Interfaces = append([]NetworkStatus(nil), n.Interfaces...)
	return &v
}

func (h *HealthStatus) clone() *HealthStatus {
	if h == nil {
		return nil
	}
	v := *h
	v.Warnings = append([]string(nil), h.Warnings...)
	v.CriticalIssues = append([]string(nil), h.CriticalIssues...)
	return &v
}
