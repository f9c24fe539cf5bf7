package model

// ClusterStatus is the outcome of the consistency checks run on a cluster
type ClusterStatus string

const (
	ClusterStatusHealthy   ClusterStatus = "healthy"
	ClusterStatusDegraded  ClusterStatus = "degraded"
	ClusterStatusUnhealthy ClusterStatus = "unhealthy"
)

// CheckStatus is the outcome of a single check
type CheckStatus string

const (
	CheckStatusHealthy  CheckStatus = "healthy"
	CheckStatusWarning  CheckStatus = "warning"
	CheckStatusCritical CheckStatus = "critical"
)

// HealthStatus represents the health state of a cluster
type HealthStatus struct {
	Status    ClusterStatus `json:"status"`
	Timestamp int64         `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}
