package service

import (
	"sort"

	"github.com/devrev/pairdb/tabletsim/internal/metrics"
	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/storage/sstable"
	"go.uber.org/zap"
)

// Bucket is a maximal group of SSTables whose key ranges overlap
// transitively, with the merged range they span
type Bucket struct {
	KeyRange model.KeyRange
	SSTables []*sstable.SSTable
}

// IDs returns the member SSTable ids in bucket order
func (b Bucket) IDs() []model.SSTableID {
	ids := make([]model.SSTableID, len(b.SSTables))
	for i, s := range b.SSTables {
		ids[i] = s.ID()
	}
	return ids
}

// Info returns the listing entry for the bucket
func (b Bucket) Info() model.BucketInfo {
	return model.BucketInfo{
		KeyRange: b.KeyRange,
		SSTables: b.IDs(),
	}
}

// CompactionService plans cross-replica compaction by grouping SSTables into
// overlap buckets. Nothing is merged; a bucket is the input a compaction or a
// tablet split would have to resolve as one unit.
type CompactionService struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCompactionService creates a new compaction service
func NewCompactionService(m *metrics.Metrics, logger *zap.Logger) *CompactionService {
	return &CompactionService{
		metrics: m,
		logger:  logger,
	}
}

// SplitIntoBuckets groups tables into overlap buckets and records the result
func (s *CompactionService) SplitIntoBuckets(tables []*sstable.SSTable) []Bucket {
	buckets := SplitIntoBuckets(tables)

	for _, b := range buckets {
		s.metrics.RecordBucket(len(b.SSTables), b.KeyRange.End-b.KeyRange.Start)
	}
	s.metrics.UpdateBuckets(len(buckets))

	s.logger.Info("Split SSTables into overlap buckets",
		zap.Int("sstables", len(tables)),
		zap.Int("buckets", len(buckets)))

	return buckets
}

// SplitIntoBuckets sorts tables by range start and repeatedly pops the head
// together with every following table that starts strictly before the
// running end of the group. The input slice is left untouched.
//
// Buckets come out in ascending key order and every table lands in exactly
// one bucket. Tables with equal starts are ordered by descending end (then
// id), which makes the result independent of input order.
//
// Single-key tables [s, s] never overlap anything under the strict test, so
// several of them with the same key each form a bucket of their own, and
// those buckets carry equal ranges.
func SplitIntoBuckets(tables []*sstable.SSTable) []Bucket {
	sorted := make([]*sstable.SSTable, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := sorted[i].KeyRange(), sorted[j].KeyRange()
		if ri.Start != rj.Start {
			return ri.Start < rj.Start
		}
		if ri.End != rj.End {
			return ri.End > rj.End
		}
		return sorted[i].ID() < sorted[j].ID()
	})

	var buckets []Bucket
	for len(sorted) > 0 {
		var bucket Bucket
		bucket, sorted = popOverlappingHead(sorted)
		buckets = append(buckets, bucket)
	}
	return buckets
}

// popOverlappingHead takes the first table of sorted and the run of tables
// chained to it, returning the bucket and the remainder
func popOverlappingHead(sorted []*sstable.SSTable) (Bucket, []*sstable.SSTable) {
	bucket := Bucket{
		KeyRange: sorted[0].KeyRange(),
		SSTables: []*sstable.SSTable{sorted[0]},
	}

	i := 1
	for ; i < len(sorted); i++ {
		next := sorted[i].KeyRange()
		if next.Start >= bucket.KeyRange.End {
			break
		}
		bucket.SSTables = append(bucket.SSTables, sorted[i])
		bucket.KeyRange = bucket.KeyRange.Extend(next)
	}

	return bucket, sorted[i:]
}
