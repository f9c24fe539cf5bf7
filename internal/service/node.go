package service

import (
	"sort"

	"github.com/devrev/pairdb/tabletsim/internal/metrics"
	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/storage/memtable"
	"github.com/devrev/pairdb/tabletsim/internal/storage/sstable"
	"github.com/devrev/pairdb/tabletsim/internal/util"
	"go.uber.org/zap"
)

// NodeConfig holds node configuration
type NodeConfig struct {
	ID              model.NodeID
	MaxMemTableSize int
	FlushPolicy     FlushPolicy
}

// Node owns one memtable per tablet it replicates and the SSTables it has
// flushed. A node is driven by one goroutine at a time; nodes share nothing
// but the SSTable id sequence.
type Node struct {
	id              model.NodeID
	maxMemTableSize int
	policy          FlushPolicy
	sstableIDs      *util.Sequence
	memTables       map[model.TabletID]*memtable.MemTable
	sstables        []*sstable.SSTable
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewNode creates a node drawing SSTable ids from sstableIDs
func NewNode(cfg *NodeConfig, sstableIDs *util.Sequence, m *metrics.Metrics, logger *zap.Logger) *Node {
	policy := cfg.FlushPolicy
	if policy == nil {
		policy = FixedThresholdPolicy(0)
	}
	return &Node{
		id:              cfg.ID,
		maxMemTableSize: cfg.MaxMemTableSize,
		policy:          policy,
		sstableIDs:      sstableIDs,
		memTables:       make(map[model.TabletID]*memtable.MemTable),
		metrics:         m,
		logger:          logger.With(zap.Uint64("node_id", uint64(cfg.ID))),
	}
}

// ID returns the node identifier
func (n *Node) ID() model.NodeID {
	return n.id
}

// Mutate applies a mutation to the memtable of tablet and flushes it when
// it reaches the policy threshold. Returns true if a flush happened.
func (n *Node) Mutate(tablet model.TabletID, partitionKey, clusteringKey int64) bool {
	mt, exists := n.memTables[tablet]
	if !exists {
		mt = memtable.NewMemTable(tablet)
		n.memTables[tablet] = mt
	}

	created := mt.Mutate(partitionKey, clusteringKey)
	n.metrics.RecordMutation(created)

	if mt.Size() >= n.policy.Threshold(n.maxMemTableSize) {
		n.flush(mt, metrics.FlushReasonThreshold)
		return true
	}
	return false
}

// Flush drains every non-empty memtable regardless of the threshold.
// Returns the number of SSTables produced.
func (n *Node) Flush() int {
	tablets := make([]model.TabletID, 0, len(n.memTables))
	for tablet := range n.memTables {
		tablets = append(tablets, tablet)
	}
	sort.Slice(tablets, func(i, j int) bool { return tablets[i] < tablets[j] })

	flushed := 0
	for _, tablet := range tablets {
		if n.flush(n.memTables[tablet], metrics.FlushReasonDrain) {
			flushed++
		}
	}
	return flushed
}

// flush freezes mt into a new SSTable appended to the node's list
func (n *Node) flush(mt *memtable.MemTable, reason string) bool {
	if mt.Empty() {
		return false
	}

	id := model.SSTableID(n.sstableIDs.Next())
	table := mt.Flush(id, n.id)
	n.sstables = append(n.sstables, table)

	n.metrics.RecordFlush(reason, table.NrRows(), table.NrPartitions())
	n.logger.Debug("Flushed memtable",
		zap.String("reason", reason),
		zap.Uint64("tablet_id", uint64(table.Tablet())),
		zap.Uint64("sstable_id", uint64(table.ID())),
		zap.Int("partitions", table.NrPartitions()),
		zap.Int("rows", table.NrRows()),
		zap.Stringer("key_range", table.KeyRange()))

	return true
}

// SSTables returns the flushed SSTables in flush order
func (n *Node) SSTables() []*sstable.SSTable {
	out := make([]*sstable.SSTable, len(n.sstables))
	copy(out, n.sstables)
	return out
}

// MemTable returns the current memtable for tablet
func (n *Node) MemTable(tablet model.TabletID) (*memtable.MemTable, bool) {
	mt, exists := n.memTables[tablet]
	return mt, exists
}

// MemTableRows returns the rows still resident in memtables
func (n *Node) MemTableRows() int {
	rows := 0
	for _, mt := range n.memTables {
		rows += mt.Size()
	}
	return rows
}

// FlushedRows returns the rows held by flushed SSTables
func (n *Node) FlushedRows() int {
	rows := 0
	for _, table := range n.sstables {
		rows += table.NrRows()
	}
	return rows
}

// Mutations returns the mutation counters summed over memtables and SSTables
func (n *Node) Mutations() uint64 {
	var total uint64
	for _, mt := range n.memTables {
		total += mt.Mutations()
	}
	for _, table := range n.sstables {
		total += table.NrMutations()
	}
	return total
}
