package memtable

import (
	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/storage/sstable"
)

// MemTable accumulates the current generation of partitions for one
// (node, tablet) pair. It is owned by a single node and is not safe for
// concurrent use.
type MemTable struct {
	tablet     model.TabletID
	partitions *SkipList[int64, *model.Partition]
	rows       int
	mutations  uint64
}

// NewMemTable creates an empty memtable for a tablet
func NewMemTable(tablet model.TabletID) *MemTable {
	return &MemTable{
		tablet:     tablet,
		partitions: NewSkipList[int64, *model.Partition](),
	}
}

// Mutate records one mutation. Returns true when it created a new row.
func (mt *MemTable) Mutate(partitionKey, clusteringKey int64) bool {
	p, found := mt.partitions.Search(partitionKey)
	if !found {
		p = model.NewPartition(partitionKey)
		mt.partitions.Insert(partitionKey, p)
	}

	created := p.MutateRow(clusteringKey)
	mt.mutations++
	if created {
		mt.rows++
	}
	return created
}

// Size returns the total number of rows
func (mt *MemTable) Size() int {
	return mt.rows
}

// Mutations returns the number of mutations applied to this generation
func (mt *MemTable) Mutations() uint64 {
	return mt.mutations
}

// Empty reports whether the memtable holds no partitions
func (mt *MemTable) Empty() bool {
	return mt.partitions.Len() == 0
}

// Tablet returns the tablet this memtable buffers
func (mt *MemTable) Tablet() model.TabletID {
	return mt.tablet
}

// PartitionCount returns the number of partitions
func (mt *MemTable) PartitionCount() int {
	return mt.partitions.Len()
}

// Partition looks up a partition of the current generation
func (mt *MemTable) Partition(key int64) (*model.Partition, bool) {
	return mt.partitions.Search(key)
}

// KeyRange returns the range of partition keys held, false when empty
func (mt *MemTable) KeyRange() (model.KeyRange, bool) {
	first, ok := mt.partitions.First()
	if !ok {
		return model.KeyRange{}, false
	}
	last, _ := mt.partitions.Last()
	return model.KeyRange{Start: first, End: last}, true
}

// Flush swaps in an empty generation and freezes the previous one into an
// SSTable. Returns nil when there is nothing to flush.
func (mt *MemTable) Flush(id model.SSTableID, origin model.NodeID) *sstable.SSTable {
	if mt.Empty() {
		return nil
	}

	frozen := mt.partitions
	mt.partitions = NewSkipList[int64, *model.Partition]()
	mt.rows = 0
	mt.mutations = 0

	partitions := make([]*model.Partition, 0, frozen.Len())
	iter := frozen.Iterator()
	for iter.Next() {
		partitions = append(partitions, iter.Value())
	}

	return sstable.New(id, origin, mt.tablet, partitions)
}
