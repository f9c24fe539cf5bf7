package workload

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/devrev/pairdb/tabletsim/internal/errors"
	"github.com/devrev/pairdb/tabletsim/internal/model"
)

// Generator draws the random parts of a run from one seeded source
type Generator struct {
	seed int64
	rnd  *rand.Rand
}

// NewGenerator creates a generator. A zero seed picks a time based one.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		seed: seed,
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed in use
func (g *Generator) Seed() int64 {
	return g.seed
}

// IntBetween returns a uniform integer in [lo, hi]
func (g *Generator) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.Intn(hi-lo+1)
}

// TabletBounds returns count ascending upper bounds: count-1 distinct keys
// drawn from [1, maxKey-2] followed by maxKey itself, so the last tablet
// always covers the end of the key space.
func (g *Generator) TabletBounds(count int, maxKey int64) ([]int64, error) {
	if count < 1 {
		return nil, errors.InvalidArgument("tablet count must be positive", nil).
			WithDetail("tablets", count)
	}
	var pool int64
	if maxKey > 2 {
		pool = maxKey - 2
	}
	if int64(count-1) > pool {
		return nil, errors.InvalidArgument("not enough keys for the requested tablets", nil).
			WithDetail("tablets", count).
			WithDetail("max_partition_key", maxKey)
	}

	bounds := g.sample(pool, count-1)
	for i := range bounds {
		bounds[i]++
	}
	bounds = append(bounds, maxKey)
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	return bounds, nil
}

// sample draws k distinct values from [0, n) with Floyd's algorithm, in
// O(k) time and space regardless of n
func (g *Generator) sample(n int64, k int) []int64 {
	out := make([]int64, 0, k+1)
	chosen := make(map[int64]struct{}, k)
	for j := n - int64(k); j < n; j++ {
		v := g.rnd.Int63n(j + 1)
		if _, taken := chosen[v]; taken {
			v = j
		}
		chosen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// partitionKey draws a key uniformly from [0, maxKey]
func (g *Generator) partitionKey(maxKey int64) int64 {
	if maxKey == math.MaxInt64 {
		return int64(g.rnd.Uint64() >> 1)
	}
	return g.rnd.Int63n(maxKey + 1)
}

// Mutations returns n mutations with partition keys uniform in
// [0, maxKey] and clustering keys uniform in [0, partitionSize]
func (g *Generator) Mutations(n int, maxKey int64, partitionSize int) []model.Mutation {
	out := make([]model.Mutation, n)
	for i := range out {
		out[i] = model.Mutation{
			PartitionKey:  g.partitionKey(maxKey),
			ClusteringKey: int64(g.rnd.Intn(partitionSize + 1)),
		}
	}
	return out
}
