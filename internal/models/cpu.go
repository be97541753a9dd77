package models

// LoadAverage holds the 1/5/15 minute load averages.
type LoadAverage struct {
	Load1  float64 `json:"1min"`
	Load5  float64 `json:"5min"`
	Load15 float64 `json:"15min"`
}

// CPUStatus represents CPU usage information
type CPUStatus struct {
	UsagePercent float64     `json:"usage_percent"`
	PerCore      []float64   `json:"usage_per_cpu,omitempty"`
	LoadAvg      LoadAverage `json:"load_avg"`
	CoreCount    int         `json:"cpu_count"`
}
