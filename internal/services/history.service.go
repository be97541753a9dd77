package services

import (
	"sync"
	"time"

	"nigran/internal/models"
)

// HistoryCollector keeps a bounded in-memory rolling window of the volatile
// metrics, fed one point per broadcast tick. Nothing is persisted.
type HistoryCollector struct {
	mu            sync.RWMutex
	cpu           []models.CPUPoint
	memory        []models.MemoryPoint
	network       []models.NetworkPoint
	health        []models.HealthPoint
	maxDataPoints int
}

func NewHistoryCollector(maxDataPoints int) *HistoryCollector {
	if maxDataPoints <= 0 {
		maxDataPoints = 720
	}
	return &HistoryCollector{maxDataPoints: maxDataPoints}
}

// Record appends the volatile readings of one snapshot to the window.
func (hc *HistoryCollector) Record(snap *models.Snapshot) {
	if snap == nil {
		return
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	if snap.CPU != nil {
		hc.cpu = append(hc.cpu, models.CPUPoint{
			Timestamp: snap.Timestamp,
			Usage:     snap.CPU.UsagePercent,
		})
		hc.cpu = trim(hc.cpu, hc.maxDataPoints)
	}
	if snap.Memory != nil {
		hc.memory = append(hc.memory, models.MemoryPoint{
			Timestamp:   snap.Timestamp,
			UsedPercent: snap.Memory.UsedPercent,
			Used:        snap.Memory.Used,
		})
		hc.memory = trim(hc.memory, hc.maxDataPoints)
	}
	if snap.Network != nil {
		hc.network = append(hc.network, models.NetworkPoint{
			Timestamp:     snap.Timestamp,
			BytesSentRate: snap.Network.BytesSentRate,
			BytesRecvRate: snap.Network.BytesRecvRate,
		})
		hc.network = trim(hc.network, hc.maxDataPoints)
	}
	if snap.Health != nil {
		hc.health = append(hc.health, models.HealthPoint{
			Timestamp: snap.Timestamp,
			Score:     snap.Health.Score,
		})
		hc.health = trim(hc.health, hc.maxDataPoints)
	}
}

func trim[T any](points []T, max int) []T {
	if len(points) > max {
		return points[len(points)-max:]
	}
	return points
}

// Window returns the points recorded within the duration, newest last.
func (hc *HistoryCollector) Window(d time.Duration) models.HistoricalWindow {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	cutoff := time.Now().Add(-d)
	window := models.HistoricalWindow{}

	for _, p := range hc.cpu {
		if p.Timestamp.After(cutoff) {
			window.CPU = append(window.CPU, p)
		}
	}
	for _, p := range hc.memory {
		if p.Timestamp.After(cutoff) {
			window.Memory = append(window.Memory, p)
		}
	}
	for _, p := range hc.network {
		if p.Timestamp.After(cutoff) {
			window.Network = append(window.Network, p)
		}
	}
	for _, p := range hc.health {
		if p.Timestamp.After(cutoff) {
			window.Health = append(window.Health, p)
		}
	}
	return window
}
