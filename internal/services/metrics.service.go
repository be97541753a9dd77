package services

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"nigran/internal/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

const MB = 1024 * 1024

// Source produces one category payload per call. Implementations do no
// caching of their own; the cache manager owns freshness.
type Source interface {
	CPU() (*models.CPUStatus, error)
	Memory() (*models.MemoryStatus, error)
	Disk() ([]models.DiskStatus, error)
	Network() (*models.AggregatedNetworkStatus, error)
	Health() (*models.HealthStatus, error)
	StatsSummary() (*models.StatsSummary, error)
	Services() ([]models.ServiceStatus, error)
	Ports() ([]models.PortStatus, error)
	MemoryProcesses() ([]models.ProcessStatus, error)
	System() (*models.SystemInfo, error)
}

// watchedServices are probed with `systemctl is-active`.
var watchedServices = []string{
	"nginx", "apache2", "mysql", "postgresql", "redis-server",
	"ssh", "ufw", "fail2ban", "docker",
}

// monitoredPorts maps well-known ports to the service expected on them.
var monitoredPorts = map[int]string{
	22:    "SSH",
	80:    "HTTP",
	443:   "HTTPS",
	3306:  "MySQL",
	5432:  "PostgreSQL",
	6379:  "Redis",
	27017: "MongoDB",
	8080:  "HTTP-Alt",
	9000:  "PHP-FPM",
	5000:  "Flask-Dev",
}

const (
	processRSSFloorMB = 10
	processListLimit  = 20
	serviceProbeLimit = 5 * time.Second
	portDialTimeout   = time.Second
)

// Collector is the gopsutil-backed Source. It keeps the previous network
// counter reading so byte rates can be derived between calls.
type Collector struct {
	mu       sync.Mutex
	lastSent uint64
	lastRecv uint64
	lastTime time.Time
}

func NewCollector() *Collector {
	return &Collector{}
}

// GetCPU-style fetchers below mirror the category table one to one.

func (c *Collector) CPU() (*models.CPUStatus, error) {
	percentage, err := cpu.Percent(0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percentage) == 0 {
		return nil, fmt.Errorf("cpu percent: empty reading")
	}

	perCore, err := cpu.Percent(0, true)
	if err != nil {
		perCore = nil
	}

	coreCount, err := cpu.Counts(true)
	if err != nil {
		coreCount = 0
	}

	status := &models.CPUStatus{
		UsagePercent: percentage[0],
		PerCore:      perCore,
		CoreCount:    coreCount,
	}

	if avg, err := load.Avg(); err == nil {
		status.LoadAvg = models.LoadAverage{
			Load1:  avg.Load1,
			Load5:  avg.Load5,
			Load15: avg.Load15,
		}
	}

	return status, nil
}

func (c *Collector) Memory() (*models.MemoryStatus, error) {
	virtualMemory, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	status := &models.MemoryStatus{
		Total:       virtualMemory.Total,
		Available:   virtualMemory.Available,
		Used:        virtualMemory.Used,
		Free:        virtualMemory.Free,
		UsedPercent: virtualMemory.UsedPercent,
	}

	if swap, err := mem.SwapMemory(); err == nil {
		status.SwapTotal = swap.Total
		status.SwapUsed = swap.Used
		status.SwapPercent = swap.UsedPercent
	}

	return status, nil
}

func (c *Collector) Disk() ([]models.DiskStatus, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}

	var statuses []models.DiskStatus
	for _, partition := range partitions {
		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			continue
		}
		statuses = append(statuses, models.DiskStatus{
			Device:      partition.Device,
			Mountpoint:  partition.Mountpoint,
			Fstype:      partition.Fstype,
			Total:       usage.Total,
			Used:        usage.Used,
			Free:        usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}

	if len(statuses) == 0 {
		return nil, fmt.Errorf("no readable partitions")
	}
	return statuses, nil
}

func (c *Collector) Network() (*models.AggregatedNetworkStatus, error) {
	counters, err := psnet.IOCounters(true)
	if err != nil {
		return nil, err
	}

	agg := &models.AggregatedNetworkStatus{}
	for _, counter := range counters {
		if counter.Name == "lo" {
			continue
		}
		agg.Interfaces = append(agg.Interfaces, models.NetworkStatus{
			Interface:   counter.Name,
			BytesSent:   counter.BytesSent,
			BytesRecv:   counter.BytesRecv,
			PacketsSent: counter.PacketsSent,
			PacketsRecv: counter.PacketsRecv,
			ErrorsIn:    counter.Errin,
			ErrorsOut:   counter.Errout,
			DropsIn:     counter.Dropin,
			DropsOut:    counter.Dropout,
		})
		agg.BytesSent += counter.BytesSent
		agg.BytesRecv += counter.BytesRecv
	}

	agg.BytesSentRate, agg.BytesRecvRate = c.rates(agg.BytesSent, agg.BytesRecv)
	return agg, nil
}

// rates derives bytes/sec from the previous counter reading. The first call
// and counter resets both report zero.
func (c *Collector) rates(totalSent, totalRecv uint64) (sentRate, recvRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if !c.lastTime.IsZero() {
		timeDelta := now.Sub(c.lastTime).Seconds()
		if timeDelta > 0 && totalSent >= c.lastSent && totalRecv >= c.lastRecv {
			sentRate = float64(totalSent-c.lastSent) / timeDelta
			recvRate = float64(totalRecv-c.lastRecv) / timeDelta
		}
	}

	c.lastSent = totalSent
	c.lastRecv = totalRecv
	c.lastTime = now
	return sentRate, recvRate
}

func (c *Collector) Health() (*models.HealthStatus, error) {
	cpuStatus, err := c.CPU()
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	memStatus, err := c.Memory()
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	// Disk trouble lowers the score but must not block the health reading.
	diskStatuses, _ := c.Disk()

	return ComputeHealth(cpuStatus, memStatus, diskStatuses), nil
}

func (c *Collector) StatsSummary() (*models.StatsSummary, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	summary := &models.StatsSummary{TotalProcesses: len(procs)}
	for _, p := range procs {
		status, err := p.Status()
		if err != nil || len(status) == 0 {
			summary.OtherProcesses++
			continue
		}
		switch status[0] {
		case process.Running:
			summary.RunningProcesses++
		case process.Sleep:
			summary.SleepingProcesses++
		case process.Zombie:
			summary.ZombieProcesses++
		default:
			summary.OtherProcesses++
		}
	}

	if conns, err := psnet.Connections("inet"); err == nil {
		for _, conn := range conns {
			switch conn.Status {
			case "ESTABLISHED":
				summary.Established++
			case "LISTEN":
				summary.Listening++
			}
		}
	}

	return summary, nil
}

func (c *Collector) Services() ([]models.ServiceStatus, error) {
	statuses := make([]models.ServiceStatus, 0, len(watchedServices))
	for _, name := range watchedServices {
		statuses = append(statuses, probeService(name))
	}
	return statuses, nil
}

func probeService(name string) models.ServiceStatus {
	ctx, cancel := context.WithTimeout(context.Background(), serviceProbeLimit)
	defer cancel()

	out, err := exec.CommandContext(ctx, "systemctl", "is-active", name).Output()
	status := strings.TrimSpace(string(out))
	if status == "" {
		if err != nil {
			status = "unknown"
		} else {
			status = "inactive"
		}
	}

	return models.ServiceStatus{
		Name:   name,
		Status: status,
		Active: status == "active",
	}
}

func (c *Collector) Ports() ([]models.PortStatus, error) {
	type listener struct {
		pid         int32
		processName string
		connections int
	}
	listening := make(map[int]*listener)

	if conns, err := psnet.Connections("inet"); err == nil {
		for _, conn := range conns {
			if conn.Status != "LISTEN" {
				continue
			}
			port := int(conn.Laddr.Port)
			l, ok := listening[port]
			if !ok {
				l = &listener{pid: conn.Pid}
				listening[port] = l
			}
			l.connections++
			if conn.Pid != 0 && l.processName == "" {
				if proc, err := process.NewProcess(conn.Pid); err == nil {
					if name, err := proc.Name(); err == nil {
						l.processName = name
					}
				}
			}
		}
	}

	statuses := make([]models.PortStatus, 0, len(monitoredPorts))
	for port, serviceName := range monitoredPorts {
		status := models.PortStatus{
			Port:    port,
			Service: serviceName,
			Status:  models.PortClosed,
		}
		if l, ok := listening[port]; ok {
			status.Status = models.PortOpen
			status.PID = l.pid
			status.ProcessName = l.processName
			status.Connections = l.connections
		} else if portReachable(port) {
			status.Status = models.PortFiltered
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Port < statuses[j].Port
	})
	return statuses, nil
}

func portReachable(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), portDialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Collector) MemoryProcesses() ([]models.ProcessStatus, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var statuses []models.ProcessStatus
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}

		memInfo, err := p.MemoryInfo()
		if err != nil || memInfo == nil {
			continue
		}
		rssMB := float64(memInfo.RSS) / MB
		if rssMB < processRSSFloorMB {
			continue
		}

		ps := models.ProcessStatus{
			PID:   p.Pid,
			Name:  name,
			RSSMB: rssMB,
			VMSMB: float64(memInfo.VMS) / MB,
		}
		if cpuPercent, err := p.CPUPercent(); err == nil {
			ps.CPUPercent = cpuPercent
		}
		if memPercent, err := p.MemoryPercent(); err == nil {
			ps.MemPercent = memPercent
		}
		if username, err := p.Username(); err == nil {
			ps.Username = username
		}
		if status, err := p.Status(); err == nil && len(status) > 0 {
			ps.Status = status[0]
		} else {
			ps.Status = "unknown"
		}

		statuses = append(statuses, ps)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].RSSMB > statuses[j].RSSMB
	})
	if len(statuses) > processListLimit {
		statuses = statuses[:processListLimit]
	}
	return statuses, nil
}

func (c *Collector) System() (*models.SystemInfo, error) {
	info, err := host.Info()
	if err != nil {
		return nil, err
	}

	return &models.SystemInfo{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		Architecture:  info.KernelArch,
		UptimeSeconds: info.Uptime,
		BootTime:      int64(info.BootTime),
		IPAddress:     primaryIP(),
	}, nil
}

// primaryIP returns the first non-loopback IPv4 address, or empty.
func primaryIP() string {
	ifaces, err := psnet.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Name == "lo" {
			continue
		}
		for _, addr := range iface.Addrs {
			ipStr := addr.Addr
			if idx := strings.Index(ipStr, "/"); idx >= 0 {
				ipStr = ipStr[:idx]
			}
			ip := net.ParseIP(ipStr)
			if ip != nil && ip.To4() != nil && !ip.IsLoopback() {
				return ipStr
			}
		}
	}
	return ""
}
