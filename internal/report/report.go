package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/service"
	"github.com/olekukonko/tablewriter"
)

// Summary is everything the end-of-run report shows
type Summary struct {
	RunID    string
	Seed     int64
	Tablets  []model.TabletMapping
	Nodes    []model.NodeSummary
	SSTables []model.SSTableInfo
	Buckets  []model.BucketInfo
}

// Build collects the summary of cluster and its buckets.
// SSTables are listed by ascending range start, ties by id.
func Build(runID string, seed int64, cluster *service.Cluster, buckets []service.Bucket) *Summary {
	tables := cluster.CollectSSTables()
	infos := make([]model.SSTableInfo, len(tables))
	for i, t := range tables {
		infos[i] = t.Info()
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].KeyRange.Start != infos[j].KeyRange.Start {
			return infos[i].KeyRange.Start < infos[j].KeyRange.Start
		}
		return infos[i].SSTableID < infos[j].SSTableID
	})

	bucketInfos := make([]model.BucketInfo, len(buckets))
	for i, b := range buckets {
		bucketInfos[i] = b.Info()
	}

	return &Summary{
		RunID:    runID,
		Seed:     seed,
		Tablets:  cluster.TabletMap(),
		Nodes:    cluster.NodeSummaries(),
		SSTables: infos,
		Buckets:  bucketInfos,
	}
}

// Render writes the four report tables to w
func Render(w io.Writer, s *Summary) error {
	if _, err := fmt.Fprintf(w, "run %s (seed %d)\n\n", s.RunID, s.Seed); err != nil {
		return err
	}

	sections := []struct {
		title  string
		header []string
		rows   [][]string
	}{
		{"Tablets", []string{"Tablet", "Upper bound", "Replicas"}, tabletRows(s.Tablets)},
		{"Nodes", []string{"Node", "SSTables", "Tablet replicas", "Memtable rows"}, nodeRows(s.Nodes)},
		{"SSTables", []string{"SSTable", "Node", "Tablet", "Range", "Partitions", "Rows", "Checksum"}, sstableRows(s.SSTables)},
		{"Buckets", []string{"Bucket", "Range", "SSTables", "Members"}, bucketRows(s.Buckets)},
	}

	for _, sec := range sections {
		if _, err := fmt.Fprintf(w, "%s (%d)\n", sec.title, len(sec.rows)); err != nil {
			return err
		}

		tableString := &strings.Builder{}
		table := tablewriter.NewWriter(tableString)
		table.SetHeader(sec.header)
		table.SetAutoWrapText(false)
		table.AppendBulk(sec.rows)
		table.Render()

		if _, err := io.WriteString(w, tableString.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func tabletRows(tablets []model.TabletMapping) [][]string {
	rows := make([][]string, len(tablets))
	for i, t := range tablets {
		rows[i] = []string{
			strconv.FormatUint(uint64(t.TabletID), 10),
			strconv.FormatInt(t.UpperBound, 10),
			joinNodeIDs(t.Replicas),
		}
	}
	return rows
}

func nodeRows(nodes []model.NodeSummary) [][]string {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{
			strconv.FormatUint(uint64(n.NodeID), 10),
			strconv.Itoa(n.SSTables),
			strconv.Itoa(n.TabletReplicas),
			strconv.Itoa(n.MemtableRows),
		}
	}
	return rows
}

func sstableRows(tables []model.SSTableInfo) [][]string {
	rows := make([][]string, len(tables))
	for i, t := range tables {
		rows[i] = []string{
			strconv.FormatUint(uint64(t.SSTableID), 10),
			strconv.FormatUint(uint64(t.Origin), 10),
			strconv.FormatUint(uint64(t.TabletID), 10),
			t.KeyRange.String(),
			strconv.Itoa(t.Partitions),
			strconv.Itoa(t.Rows),
			fmt.Sprintf("%08x", t.Checksum),
		}
	}
	return rows
}

func bucketRows(buckets []model.BucketInfo) [][]string {
	rows := make([][]string, len(buckets))
	for i, b := range buckets {
		ids := make([]string, len(b.SSTables))
		for j, id := range b.SSTables {
			ids[j] = strconv.FormatUint(uint64(id), 10)
		}
		rows[i] = []string{
			strconv.Itoa(i),
			b.KeyRange.String(),
			strconv.Itoa(len(b.SSTables)),
			strings.Join(ids, " "),
		}
	}
	return rows
}

func joinNodeIDs(ids []model.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
