package model

// TabletMapping is one line of the tablet map
type TabletMapping struct {
	TabletID   TabletID
	UpperBound int64
	Replicas   []NodeID
}

// NodeSummary describes what a node holds at the end of a run
type NodeSummary struct {
	NodeID         NodeID
	SSTables       int
	TabletReplicas int
	MemtableRows   int
}

// SSTableInfo is the flat listing entry of an SSTable
type SSTableInfo struct {
	SSTableID  SSTableID
	Origin     NodeID
	TabletID   TabletID
	Partitions int
	Rows       int
	KeyRange   KeyRange
	Checksum   uint32
}

// BucketInfo lists the SSTables grouped under one merged key range
type BucketInfo struct {
	KeyRange KeyRange
	SSTables []SSTableID
}
