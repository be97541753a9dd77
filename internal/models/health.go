package models

// Health status bands derived from the score.
const (
	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthWarning   = "warning"
	HealthCritical  = "critical"
)

// HealthStatus represents the computed system health score (0-100) and the
// issues that lowered it.
type HealthStatus struct {
	Score          float64  `json:"score"`
	Status         string   `json:"status"`
	Warnings       []string `json:"warnings,omitempty"`
	CriticalIssues []string `json:"critical_issues,omitempty"`
}
