package service

import (
	"sort"

	"github.com/devrev/pairdb/tabletsim/internal/errors"
	"github.com/devrev/pairdb/tabletsim/internal/metrics"
	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/storage/sstable"
	"github.com/devrev/pairdb/tabletsim/internal/util"
	"go.uber.org/zap"
)

// ClusterConfig holds cluster configuration
type ClusterConfig struct {
	ReplicationFactor int
	MemTableSize      int
	// MaxKey is the largest partition key of the key space; CheckCoverage
	// requires a tablet whose upper bound reaches it.
	MaxKey int64
	// NewFlushPolicy builds the flush policy of each node. Nil means every
	// node flushes exactly at MemTableSize.
	NewFlushPolicy func(model.NodeID) FlushPolicy
}

// Cluster owns the node arena and the tablet map.
// Tablets are kept sorted by upper bound; a key belongs to the first tablet
// whose upper bound is >= the key.
type Cluster struct {
	config        *ClusterConfig
	nodes         []*Node
	placement     []model.NodeID
	replicaCounts []int
	tablets       []*Tablet
	nodeIDs       util.Sequence
	tabletIDs     util.Sequence
	sstableIDs    util.Sequence
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewCluster creates an empty cluster
func NewCluster(cfg *ClusterConfig, m *metrics.Metrics, logger *zap.Logger) *Cluster {
	return &Cluster{
		config:  cfg,
		metrics: m,
		logger:  logger,
	}
}

// AddNode adds a node to the arena
func (c *Cluster) AddNode() *Node {
	id := model.NodeID(c.nodeIDs.Next())

	var policy FlushPolicy
	if c.config.NewFlushPolicy != nil {
		policy = c.config.NewFlushPolicy(id)
	}

	node := NewNode(&NodeConfig{
		ID:              id,
		MaxMemTableSize: c.config.MemTableSize,
		FlushPolicy:     policy,
	}, &c.sstableIDs, c.metrics, c.logger)

	c.nodes = append(c.nodes, node)
	c.placement = append(c.placement, id)
	c.replicaCounts = append(c.replicaCounts, 0)

	c.logger.Debug("Added node", zap.Uint64("node_id", uint64(id)))
	return node
}

// AddTablet places a tablet ending at upperBound on the ReplicationFactor
// nodes holding the fewest replicas. The placement order is re-sorted in
// place with a stable sort, so ties go to the node that was ahead last time.
func (c *Cluster) AddTablet(upperBound int64) (*Tablet, error) {
	rf := c.config.ReplicationFactor
	if rf <= 0 {
		return nil, errors.InvalidConfig("replication_factor", "must be positive")
	}
	if len(c.nodes) < rf {
		return nil, errors.InsufficientNodes(len(c.nodes), rf)
	}
	if upperBound < 0 {
		return nil, errors.InvalidArgument("tablet upper bound must not be negative", nil).
			WithDetail("upper_bound", upperBound)
	}

	pos := sort.Search(len(c.tablets), func(i int) bool {
		return c.tablets[i].upperBound >= upperBound
	})
	if pos < len(c.tablets) && c.tablets[pos].upperBound == upperBound {
		return nil, errors.DuplicateTablet(upperBound)
	}

	sort.SliceStable(c.placement, func(i, j int) bool {
		return c.replicaCounts[c.placement[i]] < c.replicaCounts[c.placement[j]]
	})

	replicas := make([]model.NodeID, rf)
	copy(replicas, c.placement[:rf])
	for _, r := range replicas {
		c.replicaCounts[r]++
	}

	tablet := &Tablet{
		id:         model.TabletID(c.tabletIDs.Next()),
		upperBound: upperBound,
		replicas:   replicas,
	}

	c.tablets = append(c.tablets, nil)
	copy(c.tablets[pos+1:], c.tablets[pos:])
	c.tablets[pos] = tablet

	c.metrics.UpdateTablets(len(c.tablets))
	c.logger.Debug("Added tablet",
		zap.Uint64("tablet_id", uint64(tablet.id)),
		zap.Int64("upper_bound", upperBound),
		zap.Any("replicas", replicas))

	return tablet, nil
}

// FindTablet returns the tablet owning key
func (c *Cluster) FindTablet(key int64) (*Tablet, error) {
	i := sort.Search(len(c.tablets), func(i int) bool {
		return c.tablets[i].upperBound >= key
	})
	if i == len(c.tablets) {
		return nil, errors.KeyOutOfRange(key, c.maxUpperBound())
	}
	return c.tablets[i], nil
}

// Mutate routes a mutation to every replica of the owning tablet
func (c *Cluster) Mutate(partitionKey, clusteringKey int64) error {
	tablet, err := c.FindTablet(partitionKey)
	if err != nil {
		return err
	}
	tablet.Mutate(c.nodes, partitionKey, clusteringKey)
	return nil
}

// Flush drains the memtables of every node. Returns the SSTables produced.
func (c *Cluster) Flush() int {
	flushed := 0
	for _, node := range c.nodes {
		flushed += node.Flush()
	}
	c.logger.Info("Flushed all memtables", zap.Int("sstables", flushed))
	return flushed
}

// CheckCoverage verifies that the tablets reach the end of the key space,
// so that every key in [0, MaxKey] has an owner
func (c *Cluster) CheckCoverage() error {
	if len(c.tablets) == 0 || c.maxUpperBound() < c.config.MaxKey {
		return errors.CoverageGap(c.config.MaxKey, c.maxUpperBound())
	}
	return nil
}

// maxUpperBound returns the upper bound of the last tablet, -1 without tablets
func (c *Cluster) maxUpperBound() int64 {
	if len(c.tablets) == 0 {
		return -1
	}
	return c.tablets[len(c.tablets)-1].upperBound
}

// CollectSSTables gathers the SSTables of all nodes, node by node
func (c *Cluster) CollectSSTables() []*sstable.SSTable {
	var out []*sstable.SSTable
	for _, node := range c.nodes {
		out = append(out, node.SSTables()...)
	}
	return out
}

// CountTabletReplicas returns how many tablets node replicates
func (c *Cluster) CountTabletReplicas(node model.NodeID) int {
	if int(node) >= len(c.replicaCounts) {
		return 0
	}
	return c.replicaCounts[node]
}

// AllocatedSSTableIDs returns how many SSTable ids have been handed out
func (c *Cluster) AllocatedSSTableIDs() uint64 {
	return c.sstableIDs.Peek()
}

// TabletMap returns the tablet map in ascending upper bound order
func (c *Cluster) TabletMap() []model.TabletMapping {
	out := make([]model.TabletMapping, len(c.tablets))
	for i, t := range c.tablets {
		out[i] = model.TabletMapping{
			TabletID:   t.id,
			UpperBound: t.upperBound,
			Replicas:   t.Replicas(),
		}
	}
	return out
}

// NodeSummaries describes every node in id order
func (c *Cluster) NodeSummaries() []model.NodeSummary {
	out := make([]model.NodeSummary, len(c.nodes))
	for i, node := range c.nodes {
		out[i] = model.NodeSummary{
			NodeID:         node.id,
			SSTables:       len(node.sstables),
			TabletReplicas: c.replicaCounts[node.id],
			MemtableRows:   node.MemTableRows(),
		}
	}
	return out
}

// PublishStats pushes the per-node summaries to the metrics
func (c *Cluster) PublishStats() {
	for _, s := range c.NodeSummaries() {
		c.metrics.UpdateNodeStats(uint64(s.NodeID), s.SSTables, s.TabletReplicas)
	}
}

// Node returns the node with the given id
func (c *Cluster) Node(id model.NodeID) (*Node, bool) {
	if int(id) >= len(c.nodes) {
		return nil, false
	}
	return c.nodes[id], true
}

// Nodes returns all nodes in id order
func (c *Cluster) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Tablets returns the tablets in ascending upper bound order
func (c *Cluster) Tablets() []*Tablet {
	out := make([]*Tablet, len(c.tablets))
	copy(out, c.tablets)
	return out
}

// ReplicationFactor returns the configured replication factor
func (c *Cluster) ReplicationFactor() int {
	return c.config.ReplicationFactor
}

// MaxKey returns the largest key of the key space
func (c *Cluster) MaxKey() int64 {
	return c.config.MaxKey
}
