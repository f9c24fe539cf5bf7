package memtable

import (
	"testing"

	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemTable_Mutate(t *testing.T) {
	mt := NewMemTable(0)
	assert.True(t, mt.Empty())

	assert.True(t, mt.Mutate(5, 1))
	assert.True(t, mt.Mutate(5, 2))
	assert.False(t, mt.Mutate(5, 1))
	assert.True(t, mt.Mutate(7, 1))

	assert.Equal(t, 3, mt.Size())
	assert.Equal(t, uint64(4), mt.Mutations())
	assert.Equal(t, 2, mt.PartitionCount())

	p, found := mt.Partition(5)
	require.True(t, found)
	assert.Equal(t, []int64{1, 2}, p.ClusteringKeys())
	row, _ := p.Row(1)
	assert.Equal(t, uint64(2), row.Mutations)

	rng, ok := mt.KeyRange()
	require.True(t, ok)
	assert.Equal(t, model.KeyRange{Start: 5, End: 7}, rng)
}

func TestMemTable_Flush(t *testing.T) {
	mt := NewMemTable(4)
	assert.Nil(t, mt.Flush(0, 0), "empty memtable must not produce an sstable")

	mt.Mutate(9, 1)
	mt.Mutate(2, 3)
	mt.Mutate(2, 4)

	s := mt.Flush(11, 2)
	require.NotNil(t, s)
	assert.Equal(t, model.SSTableID(11), s.ID())
	assert.Equal(t, model.NodeID(2), s.Origin())
	assert.Equal(t, model.TabletID(4), s.Tablet())
	assert.Equal(t, model.KeyRange{Start: 2, End: 9}, s.KeyRange())
	assert.Equal(t, 3, s.NrRows())

	// the flushed generation is gone, the next one starts empty
	assert.True(t, mt.Empty())
	assert.Equal(t, 0, mt.Size())
	assert.Equal(t, uint64(0), mt.Mutations())
	_, ok := mt.KeyRange()
	assert.False(t, ok)

	mt.Mutate(2, 3)
	assert.Equal(t, 1, mt.Size())
	p, _ := s.Partition(2)
	row, _ := p.Row(3)
	assert.Equal(t, uint64(1), row.Mutations, "new generation must not touch the frozen one")
}
