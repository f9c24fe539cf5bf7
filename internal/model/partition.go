package model

import "sort"

// Row accumulates the mutations applied to one clustering key
type Row struct {
	ClusteringKey int64
	Mutations     uint64
}

// Partition groups the rows written under one partition key
type Partition struct {
	Key  int64
	rows map[int64]*Row
}

// NewPartition creates an empty partition
func NewPartition(key int64) *Partition {
	return &Partition{
		Key:  key,
		rows: make(map[int64]*Row),
	}
}

// MutateRow bumps the counter of the row, creating it on first use.
// Returns true when the row did not exist before.
func (p *Partition) MutateRow(clusteringKey int64) bool {
	row, exists := p.rows[clusteringKey]
	if !exists {
		row = &Row{ClusteringKey: clusteringKey}
		p.rows[clusteringKey] = row
	}
	row.Mutations++
	return !exists
}

// Row returns the row stored under clusteringKey
func (p *Partition) Row(clusteringKey int64) (Row, bool) {
	row, exists := p.rows[clusteringKey]
	if !exists {
		return Row{}, false
	}
	return *row, true
}

// Rows returns the number of distinct rows
func (p *Partition) Rows() int {
	return len(p.rows)
}

// ClusteringKeys returns the row keys in ascending order
func (p *Partition) ClusteringKeys() []int64 {
	keys := make([]int64, 0, len(p.rows))
	for ck := range p.rows {
		keys = append(keys, ck)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
