// Package sstable holds the immutable tables produced by memtable flushes.
package sstable

import (
	"sort"

	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/util"
)

// SSTable is a frozen snapshot of one memtable generation
type SSTable struct {
	id         model.SSTableID
	origin     model.NodeID
	tablet     model.TabletID
	partitions []*model.Partition
	keyRange   model.KeyRange
	rows       int
	mutations  uint64
	checksum   uint32
}

// New freezes partitions into an SSTable. The caller gives up ownership of
// the partitions; they must not be mutated afterwards.
func New(id model.SSTableID, origin model.NodeID, tablet model.TabletID, partitions []*model.Partition) *SSTable {
	sorted := make([]*model.Partition, len(partitions))
	copy(sorted, partitions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	s := &SSTable{
		id:         id,
		origin:     origin,
		tablet:     tablet,
		partitions: sorted,
	}

	for _, p := range sorted {
		s.rows += p.Rows()
		for _, ck := range p.ClusteringKeys() {
			row, _ := p.Row(ck)
			s.mutations += row.Mutations
		}
	}
	s.checksum = util.ComputeChecksum(digest(sorted))

	if len(sorted) > 0 {
		s.keyRange = model.KeyRange{
			Start: sorted[0].Key,
			End:   sorted[len(sorted)-1].Key,
		}
	}

	return s
}

// ID returns the run-wide unique identifier
func (s *SSTable) ID() model.SSTableID { return s.id }

// Origin returns the node that flushed the table
func (s *SSTable) Origin() model.NodeID { return s.origin }

// Tablet returns the tablet whose memtable was flushed
func (s *SSTable) Tablet() model.TabletID { return s.tablet }

// KeyRange returns [min partition key, max partition key]
func (s *SSTable) KeyRange() model.KeyRange { return s.keyRange }

// NrPartitions returns the number of partitions
func (s *SSTable) NrPartitions() int { return len(s.partitions) }

// NrRows returns the number of rows across all partitions
func (s *SSTable) NrRows() int { return s.rows }

// NrMutations returns the sum of the row mutation counters
func (s *SSTable) NrMutations() uint64 { return s.mutations }

// Checksum is a CRC32 of the table contents. Replicas holding the same rows
// with the same counters produce the same checksum.
func (s *SSTable) Checksum() uint32 { return s.checksum }

// Partition looks up a partition by key
func (s *SSTable) Partition(key int64) (*model.Partition, bool) {
	i := sort.Search(len(s.partitions), func(i int) bool { return s.partitions[i].Key >= key })
	if i < len(s.partitions) && s.partitions[i].Key == key {
		return s.partitions[i], true
	}
	return nil, false
}

// Verify recomputes the checksum over the current partition contents.
// It fails when a partition was mutated after the table was frozen.
func (s *SSTable) Verify() bool {
	return util.ValidateChecksum(digest(s.partitions), s.checksum)
}

// Info returns the listing entry for this table
func (s *SSTable) Info() model.SSTableInfo {
	return model.SSTableInfo{
		SSTableID:  s.id,
		Origin:     s.origin,
		TabletID:   s.tablet,
		Partitions: len(s.partitions),
		Rows:       s.rows,
		KeyRange:   s.keyRange,
		Checksum:   s.checksum,
	}
}

// digest encodes partitions in key order as the checksum input
func digest(partitions []*model.Partition) []byte {
	var buf []byte
	for _, p := range partitions {
		buf = util.AppendInt64(buf, p.Key)
		for _, ck := range p.ClusteringKeys() {
			row, _ := p.Row(ck)
			buf = util.AppendInt64(buf, ck)
			buf = util.AppendUint64(buf, row.Mutations)
		}
	}
	return buf
}
