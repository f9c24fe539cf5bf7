package service

import "github.com/devrev/pairdb/tabletsim/internal/model"

// Tablet is the slice of key space ending at UpperBound (inclusive) and
// starting after the previous tablet's upper bound. Replicas are indices into
// the cluster's node arena and never change once the tablet exists.
type Tablet struct {
	id         model.TabletID
	upperBound int64
	replicas   []model.NodeID
}

// ID returns the tablet identifier
func (t *Tablet) ID() model.TabletID {
	return t.id
}

// UpperBound returns the largest key owned by the tablet
func (t *Tablet) UpperBound() int64 {
	return t.upperBound
}

// RF returns the replication factor
func (t *Tablet) RF() int {
	return len(t.replicas)
}

// Replicas returns the replica node ids
func (t *Tablet) Replicas() []model.NodeID {
	out := make([]model.NodeID, len(t.replicas))
	copy(out, t.replicas)
	return out
}

// Has reports whether node is a replica of the tablet
func (t *Tablet) Has(node model.NodeID) bool {
	for _, r := range t.replicas {
		if r == node {
			return true
		}
	}
	return false
}

// Mutate applies the mutation on every replica independently
func (t *Tablet) Mutate(nodes []*Node, partitionKey, clusteringKey int64) {
	for _, r := range t.replicas {
		nodes[r].Mutate(t.id, partitionKey, clusteringKey)
	}
}
