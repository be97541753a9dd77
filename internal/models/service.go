package models

// ServiceStatus represents the systemd state of one watched service
type ServiceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "active", "inactive", "failed", "unknown"
	Active bool   `json:"active"`
}

// Port status values.
const (
	PortOpen     = "open"
	PortClosed   = "closed"
	PortFiltered = "filtered" // reachable but not in the listening table
)

// PortStatus represents the state of one monitored port
type PortStatus struct {
	Port        int    `json:"port"`
	Service     string `json:"service"`
	Status      string `json:"status"`
	ProcessName string `json:"process_name,omitempty"`
	PID         int32  `json:"pid,omitempty"`
	Connections int    `json:"connections"`
}
