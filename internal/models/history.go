package models

import "time"

// CPUPoint is one historical CPU reading
type CPUPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Usage     float64   `json:"usage"`
}

// MemoryPoint is one historical memory reading
type MemoryPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	UsedPercent float64   `json:"percent"`
	Used        uint64    `json:"used"`
}

// NetworkPoint is one historical network rate reading
type NetworkPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	BytesSentRate float64   `json:"bytes_sent_rate"`
	BytesRecvRate float64   `json:"bytes_recv_rate"`
}

// HealthPoint is one historical health score reading
type HealthPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// HistoricalWindow holds the in-memory rolling window served to dashboards
type HistoricalWindow struct {
	CPU     []CPUPoint     `json:"cpu"`
	Memory  []MemoryPoint  `json:"memory"`
	Network []NetworkPoint `json:"network"`
	Health  []HealthPoint  `json:"health"`
}
