package models

// SystemInfo represents slow-changing host identity information
type SystemInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	Architecture  string `json:"architecture"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
	BootTime      int64  `json:"boot_time"`
	IPAddress     string `json:"ip_address,omitempty"`
}
