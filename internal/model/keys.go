package model

import "fmt"

// NodeID is the dense index of a node in the cluster arena
type NodeID uint64

// TabletID identifies a tablet in the order tablets were created
type TabletID uint64

// SSTableID is unique across every node of a run
type SSTableID uint64

// Mutation is one write to a row of a partition
type Mutation struct {
	PartitionKey  int64
	ClusteringKey int64
}

// KeyRange is an inclusive range of partition keys.
//
// Overlap between two ranges uses the strict test Start < other.End, so ranges
// that only share an endpoint are treated as disjoint.
type KeyRange struct {
	Start int64
	End   int64
}

// Overlaps reports whether r and other overlap
func (r KeyRange) Overlaps(other KeyRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Contains reports whether key lies inside r, bounds included
func (r KeyRange) Contains(key int64) bool {
	return key >= r.Start && key <= r.End
}

// Extend returns r with its end pushed out to cover other.End
func (r KeyRange) Extend(other KeyRange) KeyRange {
	if other.End > r.End {
		r.End = other.End
	}
	return r
}

func (r KeyRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}
