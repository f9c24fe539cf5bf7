package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCluster(t *testing.T, bounds ...int64) *service.Cluster {
	t.Helper()
	c := service.NewCluster(&service.ClusterConfig{
		ReplicationFactor: 3,
		MemTableSize:      10,
		MaxKey:            100,
	}, nil, zap.NewNop())
	for i := 0; i < 5; i++ {
		c.AddNode()
	}
	for _, b := range bounds {
		_, err := c.AddTablet(b)
		require.NoError(t, err)
	}
	return c
}

func findCheck(t *testing.T, status model.HealthStatus, name string) model.CheckResult {
	t.Helper()
	for _, c := range status.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not found", name)
	return model.CheckResult{}
}

func TestHealthChecker_Healthy(t *testing.T) {
	c := newCluster(t, 20, 50, 100)
	for k := int64(0); k <= 100; k += 7 {
		require.NoError(t, c.Mutate(k, 1))
	}
	c.Flush()

	status := NewHealthChecker(c, zap.NewNop()).Run()

	assert.Equal(t, model.ClusterStatusHealthy, status.Status)
	assert.Len(t, status.Checks, 6)
	for _, check := range status.Checks {
		assert.Equal(t, model.CheckStatusHealthy, check.Status, check.Name)
	}
	assert.NotZero(t, status.Timestamp)
}

func TestHealthChecker_CoverageGap(t *testing.T) {
	c := newCluster(t, 20, 50)

	status := NewHealthChecker(c, zap.NewNop()).Run()

	assert.Equal(t, model.ClusterStatusUnhealthy, status.Status)
	assert.Equal(t, model.CheckStatusCritical, findCheck(t, status, "tablet_coverage").Status)
	assert.Equal(t, model.CheckStatusHealthy, findCheck(t, status, "tablet_map").Status)
}

func TestHealthChecker_UndrainedMemTables(t *testing.T) {
	c := newCluster(t, 100)
	require.NoError(t, c.Mutate(5, 1))

	status := NewHealthChecker(c, zap.NewNop()).Run()

	assert.Equal(t, model.ClusterStatusDegraded, status.Status)
	check := findCheck(t, status, "memtables_drained")
	assert.Equal(t, model.CheckStatusWarning, check.Status)
	assert.Contains(t, check.Message, "3 rows")
}

func TestHealthChecker_Handler(t *testing.T) {
	h := NewHealthChecker(newCluster(t, 50), zap.NewNop())
	h.Run()

	rec := httptest.NewRecorder()
	h.Handler(rec, httptest.NewRequest(http.MethodGet, "/health/checks", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status model.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, model.ClusterStatusUnhealthy, status.Status)
	assert.Len(t, status.Checks, 6)
}

func TestHealthChecker_ModifiedSSTable(t *testing.T) {
	c := newCluster(t, 100)
	require.NoError(t, c.Mutate(5, 1))
	c.Flush()

	h := NewHealthChecker(c, zap.NewNop())
	require.Equal(t, model.ClusterStatusHealthy, h.Run().Status)

	table := c.CollectSSTables()[0]
	p, ok := table.Partition(5)
	require.True(t, ok)
	p.MutateRow(1)

	status := h.Run()
	assert.Equal(t, model.ClusterStatusUnhealthy, status.Status)
	assert.Equal(t, model.CheckStatusCritical, findCheck(t, status, "sstable_checksums").Status)
	assert.Equal(t, model.CheckStatusHealthy, findCheck(t, status, "sstable_ids").Status)
	assert.Equal(t, model.CheckStatusHealthy, findCheck(t, status, "tablet_map").Status)
}
