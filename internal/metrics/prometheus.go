package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flush reasons used as label values
const (
	FlushReasonThreshold = "threshold"
	FlushReasonDrain     = "drain"
)

// Metrics holds all Prometheus metrics for a simulation run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Write path
	MutationsTotal   prometheus.Counter
	RowsCreatedTotal prometheus.Counter

	// Flushes
	MemTableFlushesTotal *prometheus.CounterVec
	SSTableRows          prometheus.Histogram
	SSTablePartitions    prometheus.Histogram

	// Topology
	TabletsTotal         prometheus.Gauge
	SSTablesByNode       *prometheus.GaugeVec
	TabletReplicasByNode *prometheus.GaugeVec

	// Bucketing
	BucketsTotal    prometheus.Gauge
	BucketSSTables  prometheus.Histogram
	BucketKeyWidths prometheus.Histogram
}

// NewMetrics creates and registers all metrics on reg
func NewMetrics(reg prometheus.Registerer, runID string) *Metrics {
	labels := prometheus.Labels{"run_id": runID}
	factory := promauto.With(reg)

	return &Metrics{
		MutationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "replica_mutations_total",
			Help:        "Total number of mutations applied to replica memtables",
			ConstLabels: labels,
		}),
		RowsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "rows_created_total",
			Help:        "Total number of mutations that created a new memtable row",
			ConstLabels: labels,
		}),
		MemTableFlushesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "memtable_flushes_total",
			Help:        "Total number of memtable flushes by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		SSTableRows: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "sstable_rows",
			Help:        "Histogram of rows per flushed SSTable",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(8, 2, 10), // 8 to 4096 rows
		}),
		SSTablePartitions: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "sstable_partitions",
			Help:        "Histogram of partitions per flushed SSTable",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(4, 2, 10),
		}),
		TabletsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "tablets_total",
			Help:        "Number of tablets in the tablet map",
			ConstLabels: labels,
		}),
		SSTablesByNode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "node_sstables",
			Help:        "Number of SSTables flushed by each node",
			ConstLabels: labels,
		}, []string{"node_id"}),
		TabletReplicasByNode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "node_tablet_replicas",
			Help:        "Number of tablet replicas placed on each node",
			ConstLabels: labels,
		}, []string{"node_id"}),
		BucketsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "overlap_buckets_total",
			Help:        "Number of overlap buckets produced from the collected SSTables",
			ConstLabels: labels,
		}),
		BucketSSTables: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "overlap_bucket_sstables",
			Help:        "Histogram of SSTables per overlap bucket",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(1, 2, 10),
		}),
		BucketKeyWidths: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "pairdb",
			Subsystem:   "tabletsim",
			Name:        "overlap_bucket_key_width",
			Help:        "Histogram of merged key range widths per overlap bucket",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// RecordMutation records one replica mutation
func (m *Metrics) RecordMutation(createdRow bool) {
	if m == nil {
		return
	}
	m.MutationsTotal.Inc()
	if createdRow {
		m.RowsCreatedTotal.Inc()
	}
}

// RecordFlush records a memtable flush and the SSTable it produced
func (m *Metrics) RecordFlush(reason string, rows, partitions int) {
	if m == nil {
		return
	}
	m.MemTableFlushesTotal.WithLabelValues(reason).Inc()
	m.SSTableRows.Observe(float64(rows))
	m.SSTablePartitions.Observe(float64(partitions))
}

// UpdateTablets sets the tablet count
func (m *Metrics) UpdateTablets(count int) {
	if m == nil {
		return
	}
	m.TabletsTotal.Set(float64(count))
}

// UpdateNodeStats updates per-node placement and flush gauges
func (m *Metrics) UpdateNodeStats(nodeID uint64, sstables, tabletReplicas int) {
	if m == nil {
		return
	}
	label := strconv.FormatUint(nodeID, 10)
	m.SSTablesByNode.WithLabelValues(label).Set(float64(sstables))
	m.TabletReplicasByNode.WithLabelValues(label).Set(float64(tabletReplicas))
}

// RecordBucket records one overlap bucket
func (m *Metrics) RecordBucket(sstables int, keyWidth int64) {
	if m == nil {
		return
	}
	m.BucketSSTables.Observe(float64(sstables))
	m.BucketKeyWidths.Observe(float64(keyWidth))
}

// UpdateBuckets sets the bucket count
func (m *Metrics) UpdateBuckets(count int) {
	if m == nil {
		return
	}
	m.BucketsTotal.Set(float64(count))
}
