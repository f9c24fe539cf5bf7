package workload

import (
	"context"
	"testing"

	"github.com/devrev/pairdb/tabletsim/internal/errors"
	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/service"
	"github.com/devrev/pairdb/tabletsim/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMaxKey = 2048

func newTestCluster(t *testing.T, nodes, rf, memtableSize, tablets int) *service.Cluster {
	t.Helper()
	c := service.NewCluster(&service.ClusterConfig{
		ReplicationFactor: rf,
		MemTableSize:      memtableSize,
		MaxKey:            testMaxKey,
	}, nil, zap.NewNop())
	for i := 0; i < nodes; i++ {
		c.AddNode()
	}

	bounds, err := NewGenerator(11).TabletBounds(tablets, testMaxKey)
	require.NoError(t, err)
	for _, b := range bounds {
		_, err := c.AddTablet(b)
		require.NoError(t, err)
	}
	require.NoError(t, c.CheckCoverage())
	return c
}

// replicaWrites counts the writes each node receives for mutations
func replicaWrites(t *testing.T, c *service.Cluster, mutations []model.Mutation) map[model.NodeID]int {
	t.Helper()
	out := make(map[model.NodeID]int)
	for _, m := range mutations {
		tablet, err := c.FindTablet(m.PartitionKey)
		require.NoError(t, err)
		for _, r := range tablet.Replicas() {
			out[r]++
		}
	}
	return out
}

type tableShape struct {
	Tablet   model.TabletID
	Range    model.KeyRange
	Rows     int
	Checksum uint32
}

func shapes(c *service.Cluster) map[model.NodeID][]tableShape {
	out := make(map[model.NodeID][]tableShape)
	for _, node := range c.Nodes() {
		for _, table := range node.SSTables() {
			out[node.ID()] = append(out[node.ID()], tableShape{
				Tablet:   table.Tablet(),
				Range:    table.KeyRange(),
				Rows:     table.NrRows(),
				Checksum: table.Checksum(),
			})
		}
	}
	return out
}

func TestApplier_Serial(t *testing.T) {
	c := newTestCluster(t, 3, 3, 10, 1)
	applier := NewApplier(c, validation.NewValidator(testMaxKey), 0, zap.NewNop())

	result, err := applier.Apply(context.Background(), []model.Mutation{{PartitionKey: 5, ClusteringKey: 1}, {PartitionKey: 5, ClusteringKey: 2}, {PartitionKey: 5, ClusteringKey: 1}, {PartitionKey: 7, ClusteringKey: 1}})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Mutations)
	assert.Equal(t, 12, result.ReplicaWrites)
	assert.Equal(t, 0, result.ThresholdFlush)
	assert.Equal(t, 3, result.DrainFlush)

	for _, node := range c.Nodes() {
		tables := node.SSTables()
		require.Len(t, tables, 1)
		assert.Equal(t, model.KeyRange{Start: 5, End: 7}, tables[0].KeyRange())
		assert.Equal(t, 2, tables[0].NrPartitions())
		assert.Equal(t, 3, tables[0].NrRows())
		assert.Zero(t, node.MemTableRows())
	}
}

func TestApplier_PooledMatchesSerial(t *testing.T) {
	muts := NewGenerator(21).Mutations(5000, testMaxKey, 16)

	serial := newTestCluster(t, 5, 3, 100, 8)
	serialResult, err := NewApplier(serial, nil, 0, zap.NewNop()).Apply(context.Background(), muts)
	require.NoError(t, err)

	pooled := newTestCluster(t, 5, 3, 100, 8)
	pooledResult, err := NewApplier(pooled, nil, 3, zap.NewNop()).Apply(context.Background(), muts)
	require.NoError(t, err)

	assert.Equal(t, serialResult.ReplicaWrites, pooledResult.ReplicaWrites)
	assert.Equal(t, serialResult.ThresholdFlush, pooledResult.ThresholdFlush)
	assert.Equal(t, serialResult.DrainFlush, pooledResult.DrainFlush)
	assert.Equal(t, shapes(serial), shapes(pooled))

	seen := make(map[model.SSTableID]bool)
	for _, table := range pooled.CollectSSTables() {
		assert.False(t, seen[table.ID()], "duplicate sstable id %d", table.ID())
		seen[table.ID()] = true
	}
}

func TestApplier_Accounting(t *testing.T) {
	c := newTestCluster(t, 5, 3, 50, 8)
	muts := NewGenerator(8).Mutations(2000, testMaxKey, 16)

	expected := replicaWrites(t, c, muts)

	_, err := NewApplier(c, nil, 2, zap.NewNop()).Apply(context.Background(), muts)
	require.NoError(t, err)

	for _, node := range c.Nodes() {
		assert.Equal(t, uint64(expected[node.ID()]), node.Mutations())
		assert.Zero(t, node.MemTableRows())
		assert.Positive(t, node.FlushedRows())
	}
}

func TestApplier_RejectsInvalidStream(t *testing.T) {
	c := newTestCluster(t, 3, 3, 10, 1)
	applier := NewApplier(c, validation.NewValidator(testMaxKey), 0, zap.NewNop())

	_, err := applier.Apply(context.Background(), []model.Mutation{{PartitionKey: 1, ClusteringKey: 1}, {PartitionKey: testMaxKey + 1, ClusteringKey: 0}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidArgument, errors.GetCode(err))

	for _, node := range c.Nodes() {
		assert.Zero(t, node.Mutations(), "nothing is applied from a rejected stream")
	}
}

func TestApplier_KeyOutOfRange(t *testing.T) {
	c := service.NewCluster(&service.ClusterConfig{ReplicationFactor: 1, MemTableSize: 10, MaxKey: 100}, nil, zap.NewNop())
	c.AddNode()
	_, err := c.AddTablet(50)
	require.NoError(t, err)

	for _, workers := range []int{0, 2} {
		_, err := NewApplier(c, nil, workers, zap.NewNop()).
			Apply(context.Background(), []model.Mutation{{PartitionKey: 10, ClusteringKey: 1}, {PartitionKey: 60, ClusteringKey: 1}})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeKeyOutOfRange, errors.GetCode(err))
	}
}

func TestApplier_CanceledContext(t *testing.T) {
	c := newTestCluster(t, 3, 3, 10, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewApplier(c, nil, 2, zap.NewNop()).Apply(ctx, NewGenerator(2).Mutations(100, testMaxKey, 4))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.GetCode(err))
	assert.False(t, errors.IsFatal(err))
}
