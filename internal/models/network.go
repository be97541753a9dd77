package models

// NetworkStatus represents network interface statistics
type NetworkStatus struct {
	Interface   string `json:"interface"`
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrorsIn    uint64 `json:"errin"`
	ErrorsOut   uint64 `json:"errout"`
	DropsIn     uint64 `json:"dropin"`
	DropsOut    uint64 `json:"dropout"`
}

// AggregatedNetworkStatus represents totals and real-time rates across all
// interfaces, loopback excluded.
type AggregatedNetworkStatus struct {
	BytesSent     uint64          `json:"bytes_sent"`
	BytesRecv     uint64          `json:"bytes_recv"`
	BytesSentRate float64         `json:"bytes_sent_rate"` // bytes/sec
	BytesRecvRate float64         `json:"bytes_recv_rate"` // bytes/sec
	Interfaces    []NetworkStatus `json:"interfaces,omitempty"`
}
