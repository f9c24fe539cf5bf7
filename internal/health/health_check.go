package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/service"
	"go.uber.org/zap"
)

// HealthChecker verifies the structural invariants of a cluster: the tablet
// map, replica placement and the SSTables the nodes produced
type HealthChecker struct {
	cluster   *service.Cluster
	logger    *zap.Logger
	mu        sync.RWMutex
	lastCheck time.Time
	status    model.ClusterStatus
	checks    []model.CheckResult
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(cluster *service.Cluster, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		cluster: cluster,
		logger:  logger,
		status:  model.ClusterStatusHealthy,
	}
}

// Run runs all checks and returns the resulting status
func (h *HealthChecker) Run() model.HealthStatus {
	checks := []func() model.CheckResult{
		h.checkTabletCoverage,
		h.checkTabletMap,
		h.checkReplicaBalance,
		h.checkSSTableIDs,
		h.checkSSTableChecksums,
		h.checkMemTablesDrained,
	}

	results := make([]model.CheckResult, 0, len(checks))
	status := model.ClusterStatusHealthy
	for _, check := range checks {
		result := check()
		results = append(results, result)

		switch result.Status {
		case model.CheckStatusCritical:
			status = model.ClusterStatusUnhealthy
		case model.CheckStatusWarning:
			if status == model.ClusterStatusHealthy {
				status = model.ClusterStatusDegraded
			}
		}
	}

	h.mu.Lock()
	h.lastCheck = time.Now()
	h.status = status
	h.checks = results
	h.mu.Unlock()

	h.logger.Debug("Health check completed", zap.String("status", string(status)))
	for _, r := range results {
		if r.Status != model.CheckStatusHealthy {
			h.logger.Warn("Health check failed",
				zap.String("check", r.Name),
				zap.String("status", string(r.Status)),
				zap.String("message", r.Message))
		}
	}

	return h.GetStatus()
}

// GetStatus returns the result of the last Run
func (h *HealthChecker) GetStatus() model.HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	checks := make([]model.CheckResult, len(h.checks))
	copy(checks, h.checks)
	return model.HealthStatus{
		Status:    h.status,
		Timestamp: h.lastCheck.Unix(),
		Checks:    checks,
	}
}

// checkTabletCoverage checks that every key of the key space has an owner
func (h *HealthChecker) checkTabletCoverage() model.CheckResult {
	if err := h.cluster.CheckCoverage(); err != nil {
		return critical("tablet_coverage", err.Error())
	}
	return healthy("tablet_coverage", fmt.Sprintf("keys [0, %d] covered", h.cluster.MaxKey()))
}

// checkTabletMap checks bound order and the replica sets of every tablet
func (h *HealthChecker) checkTabletMap() model.CheckResult {
	tablets := h.cluster.Tablets()
	rf := h.cluster.ReplicationFactor()

	for i, t := range tablets {
		if i > 0 && tablets[i-1].UpperBound() >= t.UpperBound() {
			return critical("tablet_map", fmt.Sprintf("upper bounds not strictly increasing at %d", t.UpperBound()))
		}
		if t.RF() != rf {
			return critical("tablet_map", fmt.Sprintf("tablet %d has %d replicas, want %d", t.ID(), t.RF(), rf))
		}
		seen := make(map[model.NodeID]bool, rf)
		for _, r := range t.Replicas() {
			if seen[r] {
				return critical("tablet_map", fmt.Sprintf("tablet %d lists node %d twice", t.ID(), r))
			}
			seen[r] = true
		}
	}

	for _, n := range h.cluster.Nodes() {
		held := 0
		for _, t := range tablets {
			if t.Has(n.ID()) {
				held++
			}
		}
		if counted := h.cluster.CountTabletReplicas(n.ID()); held != counted {
			return critical("tablet_map", fmt.Sprintf("node %d replicates %d tablets but is counted for %d", n.ID(), held, counted))
		}
	}
	return healthy("tablet_map", fmt.Sprintf("%d tablets", len(tablets)))
}

// checkReplicaBalance checks that replica counts differ by at most one
func (h *HealthChecker) checkReplicaBalance() model.CheckResult {
	nodes := h.cluster.Nodes()
	if len(nodes) == 0 {
		return warning("replica_balance", "cluster has no nodes")
	}

	lo, hi := -1, 0
	for _, n := range nodes {
		c := h.cluster.CountTabletReplicas(n.ID())
		if lo < 0 || c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	if hi-lo > 1 {
		return warning("replica_balance", fmt.Sprintf("replicas per node range from %d to %d", lo, hi))
	}
	return healthy("replica_balance", fmt.Sprintf("replicas per node: %d..%d", lo, hi))
}

// checkSSTableIDs checks that no SSTable id was handed out twice
func (h *HealthChecker) checkSSTableIDs() model.CheckResult {
	tables := h.cluster.CollectSSTables()
	seen := make(map[model.SSTableID]bool, len(tables))
	for _, t := range tables {
		if seen[t.ID()] {
			return critical("sstable_ids", fmt.Sprintf("sstable id %d used twice", t.ID()))
		}
		seen[t.ID()] = true
	}
	if allocated := h.cluster.AllocatedSSTableIDs(); allocated != uint64(len(tables)) {
		return critical("sstable_ids", fmt.Sprintf("%d ids allocated for %d sstables", allocated, len(tables)))
	}
	return healthy("sstable_ids", fmt.Sprintf("%d sstables", len(tables)))
}

// checkSSTableChecksums checks that no SSTable changed after its flush
func (h *HealthChecker) checkSSTableChecksums() model.CheckResult {
	for _, t := range h.cluster.CollectSSTables() {
		if !t.Verify() {
			return critical("sstable_checksums", fmt.Sprintf("sstable %d does not match checksum %08x", t.ID(), t.Checksum()))
		}
	}
	return healthy("sstable_checksums", "all sstables match their checksums")
}

// checkMemTablesDrained reports rows that never reached an SSTable
func (h *HealthChecker) checkMemTablesDrained() model.CheckResult {
	rows := 0
	for _, n := range h.cluster.Nodes() {
		rows += n.MemTableRows()
	}
	if rows > 0 {
		return warning("memtables_drained", fmt.Sprintf("%d rows still in memtables", rows))
	}
	return healthy("memtables_drained", "all memtables flushed")
}

func healthy(name, message string) model.CheckResult {
	return model.CheckResult{Name: name, Status: model.CheckStatusHealthy, Message: message}
}

func warning(name, message string) model.CheckResult {
	return model.CheckResult{Name: name, Status: model.CheckStatusWarning, Message: message}
}

func critical(name, message string) model.CheckResult {
	return model.CheckResult{Name: name, Status: model.CheckStatusCritical, Message: message}
}

// Handler serves the last check results as JSON
func (h *HealthChecker) Handler(w http.ResponseWriter, r *http.Request) {
	status := h.GetStatus()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == model.ClusterStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error("Failed to encode health status", zap.Error(err))
	}
}
