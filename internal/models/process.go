package models

// ProcessStatus represents one entry of the memory-top process list
type ProcessStatus struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	Username   string  `json:"username,omitempty"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float32 `json:"memory_percent"`
	RSSMB      float64 `json:"memory_rss_mb"`
	VMSMB      float64 `json:"memory_vms_mb"`
	Status     string  `json:"status"`
}

// StatsSummary represents process-state and connection counts for the host
type StatsSummary struct {
	TotalProcesses    int `json:"total_processes"`
	RunningProcesses  int `json:"running_processes"`
	SleepingProcesses int `json:"sleeping_processes"`
	ZombieProcesses   int `json:"zombie_processes"`
	OtherProcesses    int `json:"other_processes"`
	Established       int `json:"established_connections"`
	Listening         int `json:"listening_connections"`
}
