package services

import (
	"log"
	"sync"
	"time"

	"nigran/internal/config"
	"nigran/internal/models"
)

// cacheEntry holds one cached category value with its own lock, so a cold
// fetch of a slow category never blocks readers of a warm one. Only callers
// of the same category wait on an in-flight fetch, which also guarantees a
// single source call per category per tick.
type cacheEntry[T any] struct {
	mu         sync.Mutex
	value      T
	producedAt time.Time
	has        bool
}

// fetchOrServe returns the cached value while it is fresh, otherwise fetches
// from the source. On fetch failure the last known value is served stale; an
// error surfaces only when no prior value exists.
func fetchOrServe[T any](e *cacheEntry[T], ttl time.Duration, now func() time.Time, fetch func() (T, error)) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A zero TTL category is always refetched.
	if e.has && ttl > 0 && now().Sub(e.producedAt) < ttl {
		return e.value, nil
	}

	value, err := fetch()
	if err != nil {
		if e.has {
			log.Printf("[CACHE] serving stale value after fetch error: %v", err)
			return e.value, nil
		}
		var zero T
		return zero, err
	}

	e.value = value
	e.producedAt = now()
	e.has = true
	return value, nil
}

// CacheManager wraps the Source with the per-category TTL table. Each
// category is cached independently; cache writes are the only mutation.
type CacheManager struct {
	source Source
	ttl    config.TTLConfig
	now    func() time.Time

	cpu             cacheEntry[*models.CPUStatus]
	memory          cacheEntry[*models.MemoryStatus]
	disk            cacheEntry[[]models.DiskStatus]
	network         cacheEntry[*models.AggregatedNetworkStatus]
	health          cacheEntry[*models.HealthStatus]
	statsSummary    cacheEntry[*models.StatsSummary]
	services        cacheEntry[[]models.ServiceStatus]
	ports           cacheEntry[[]models.PortStatus]
	memoryProcesses cacheEntry[[]models.ProcessStatus]
	system          cacheEntry[*models.SystemInfo]
}

func NewCacheManager(source Source, ttl config.TTLConfig) *CacheManager {
	return &CacheManager{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (mc *CacheManager) CPU() (*models.CPUStatus, error) {
	return fetchOrServe(&mc.cpu, mc.ttl.TTLFor(models.CategoryCPU), mc.now, mc.source.CPU)
}

func (mc *CacheManager) Memory() (*models.MemoryStatus, error) {
	return fetchOrServe(&mc.memory, mc.ttl.TTLFor(models.CategoryMemory), mc.now, mc.source.Memory)
}

func (mc *CacheManager) Disk() ([]models.DiskStatus, error) {
	return fetchOrServe(&mc.disk, mc.ttl.TTLFor(models.CategoryDisk), mc.now, mc.source.Disk)
}

func (mc *CacheManager) Network() (*models.AggregatedNetworkStatus, error) {
	return fetchOrServe(&mc.network, mc.ttl.TTLFor(models.CategoryNetwork), mc.now, mc.source.Network)
}

func (mc *CacheManager) Health() (*models.HealthStatus, error) {
	return fetchOrServe(&mc.health, mc.ttl.TTLFor(models.CategoryHealth), mc.now, mc.source.Health)
}

func (mc *CacheManager) StatsSummary() (*models.StatsSummary, error) {
	return fetchOrServe(&mc.statsSummary, mc.ttl.TTLFor(models.CategoryStatsSummary), mc.now, mc.source.StatsSummary)
}

func (mc *CacheManager) Services() ([]models.ServiceStatus, error) {
	return fetchOrServe(&mc.services, mc.ttl.TTLFor(models.CategoryServices), mc.now, mc.source.Services)
}

func (mc *CacheManager) Ports() ([]models.PortStatus, error) {
	return fetchOrServe(&mc.ports, mc.ttl.TTLFor(models.CategoryPorts), mc.now, mc.source.Ports)
}

func (mc *CacheManager) MemoryProcesses() ([]models.ProcessStatus, error) {
	return fetchOrServe(&mc.memoryProcesses, mc.ttl.TTLFor(models.CategoryMemoryProcesses), mc.now, mc.source.MemoryProcesses)
}

func (mc *CacheManager) System() (*models.SystemInfo, error) {
	return fetchOrServe(&mc.system, mc.ttl.TTLFor(models.CategorySystem), mc.now, mc.source.System)
}

// Snapshot assembles all categories into one reading, fanning the category
// fetches out in parallel. A category whose fetch fails with no prior value
// is omitted from the snapshot rather than failing the whole pass.
func (mc *CacheManager) Snapshot() *models.Snapshot {
	snap := &models.Snapshot{Timestamp: mc.now()}

	var wg sync.WaitGroup
	run := func(name string, fill func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fill(); err != nil {
				log.Printf("[CACHE] %s collection failed, omitting from snapshot: %v", name, err)
			}
		}()
	}

	run("cpu", func() (err error) { snap.CPU, err = mc.CPU(); return })
	run("memory", func() (err error) { snap.Memory, err = mc.Memory(); return })
	run("disk", func() (err error) { snap.Disk, err = mc.Disk(); return })
	run("network", func() (err error) { snap.Network, err = mc.Network(); return })
	run("health", func() (err error) { snap.Health, err = mc.Health(); return })
	run("stats_summary", func() (err error) { snap.StatsSummary, err = mc.StatsSummary(); return })
	run("services", func() (err error) { snap.Services, err = mc.Services(); return })
	run("ports", func() (err error) { snap.Ports, err = mc.Ports(); return })
	run("memory_processes", func() (err error) { snap.MemoryProcesses, err = mc.MemoryProcesses(); return })
	run("system", func() (err error) { snap.System, err = mc.System(); return })

	wg.Wait()
	return snap
}
