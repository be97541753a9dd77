package services

import (
	"fmt"

	"nigran/internal/models"
)

// ComputeHealth scores the host 0-100 from the basic readings. Each pressure
// condition deducts a fixed amount; critical conditions deduct more and are
// reported separately from warnings.
func ComputeHealth(cpuStatus *models.CPUStatus, memStatus *models.MemoryStatus, disks []models.DiskStatus) *models.HealthStatus {
	score := 100.0
	var warnings, critical []string

	cpuUsage := 0.0
	load1 := 0.0
	coreCount := 1
	if cpuStatus != nil {
		cpuUsage = cpuStatus.UsagePercent
		load1 = cpuStatus.LoadAvg.Load1
		if cpuStatus.CoreCount > 0 {
			coreCount = cpuStatus.CoreCount
		}
	}

	switch {
	case cpuUsage > 90:
		score -= 30
		critical = append(critical, "cpu usage critically high")
	case cpuUsage > 70:
		score -= 15
		warnings = append(warnings, "cpu usage elevated")
	}

	memUsage := 0.0
	swapUsage := 0.0
	if memStatus != nil {
		memUsage = memStatus.UsedPercent
		swapUsage = memStatus.SwapPercent
	}

	switch {
	case memUsage > 90:
		score -= 30
		critical = append(critical, "memory usage critically high")
	case memUsage > 80:
		score -= 15
		warnings = append(warnings, "memory usage elevated")
	}

	for _, d := range disks {
		switch {
		case d.UsedPercent > 95:
			score -= 25
			critical = append(critical, fmt.Sprintf("disk %s almost full", d.Mountpoint))
		case d.UsedPercent > 85:
			score -= 10
			warnings = append(warnings, fmt.Sprintf("disk %s filling up", d.Mountpoint))
		}
	}

	switch {
	case load1 > float64(coreCount)*2:
		score -= 20
		critical = append(critical, "load average critically high")
	case load1 > float64(coreCount)*1.5:
		score -= 10
		warnings = append(warnings, "load average elevated")
	}

	if swapUsage > 50 {
		score -= 15
		warnings = append(warnings, "swap usage high")
	}

	if score < 0 {
		score = 0
	}

	return &models.HealthStatus{
		Score:          score,
		Status:         healthBand(score),
		Warnings:       warnings,
		CriticalIssues: critical,
	}
}

func healthBand(score float64) string {
	switch {
	case score >= 80:
		return models.HealthExcellent
	case score >= 60:
		return models.HealthGood
	case score >= 40:
		return models.HealthWarning
	default:
		return models.HealthCritical
	}
}
