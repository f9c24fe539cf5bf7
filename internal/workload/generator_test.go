package workload

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_TabletBounds(t *testing.T) {
	g := NewGenerator(7)

	bounds, err := g.TabletBounds(8, 2048)
	require.NoError(t, err)
	require.Len(t, bounds, 8)

	assert.Equal(t, int64(2048), bounds[len(bounds)-1])
	for i := 1; i < len(bounds); i++ {
		assert.Less(t, bounds[i-1], bounds[i], "bounds must be strictly increasing")
	}
	for _, b := range bounds[:len(bounds)-1] {
		assert.GreaterOrEqual(t, b, int64(1))
		assert.LessOrEqual(t, b, int64(2046))
	}
}

func TestGenerator_TabletBoundsEdgeCases(t *testing.T) {
	g := NewGenerator(1)

	bounds, err := g.TabletBounds(1, 2048)
	require.NoError(t, err)
	assert.Equal(t, []int64{2048}, bounds)

	// every key of [1, 3] is taken
	bounds, err = g.TabletBounds(4, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 5}, bounds)

	_, err = g.TabletBounds(5, 5)
	assert.Error(t, err)

	_, err = g.TabletBounds(0, 2048)
	assert.Error(t, err)
}

func TestGenerator_Mutations(t *testing.T) {
	g := NewGenerator(3)

	muts := g.Mutations(1000, 20, 4)
	require.Len(t, muts, 1000)

	seenMax := false
	for _, m := range muts {
		assert.GreaterOrEqual(t, m.PartitionKey, int64(0))
		assert.LessOrEqual(t, m.PartitionKey, int64(20))
		assert.GreaterOrEqual(t, m.ClusteringKey, int64(0))
		assert.LessOrEqual(t, m.ClusteringKey, int64(4))
		if m.PartitionKey == 20 {
			seenMax = true
		}
	}
	assert.True(t, seenMax, "the upper end of the key space is inclusive")
}

func TestGenerator_Deterministic(t *testing.T) {
	a, b := NewGenerator(99), NewGenerator(99)

	assert.Equal(t, a.Mutations(50, 2048, 16), b.Mutations(50, 2048, 16))
	assert.Equal(t, a.IntBetween(500, 600), b.IntBetween(500, 600))
	assert.Equal(t, int64(99), a.Seed())

	assert.NotZero(t, NewGenerator(0).Seed())
}

func TestGenerator_IntBetween(t *testing.T) {
	g := NewGenerator(5)
	for i := 0; i < 200; i++ {
		v := g.IntBetween(500, 600)
		assert.GreaterOrEqual(t, v, 500)
		assert.LessOrEqual(t, v, 600)
	}
	assert.Equal(t, 7, g.IntBetween(7, 7))
	assert.Equal(t, 7, g.IntBetween(7, 3))
}

func TestGenerator_LargeKeySpace(t *testing.T) {
	g := NewGenerator(13)

	for _, maxKey := range []int64{50_000_000, math.MaxInt64 - 1, math.MaxInt64} {
		bounds, err := g.TabletBounds(8, maxKey)
		require.NoError(t, err)
		require.Len(t, bounds, 8)
		assert.Equal(t, maxKey, bounds[7])
		for i := 1; i < len(bounds); i++ {
			assert.Less(t, bounds[i-1], bounds[i])
		}
		assert.GreaterOrEqual(t, bounds[0], int64(1))
		assert.LessOrEqual(t, bounds[6], maxKey-2)

		for _, m := range g.Mutations(200, maxKey, 4) {
			assert.GreaterOrEqual(t, m.PartitionKey, int64(0))
			assert.LessOrEqual(t, m.PartitionKey, maxKey)
		}
	}
}

func TestGenerator_SampleIsDistinct(t *testing.T) {
	g := NewGenerator(4)

	values := g.sample(20, 20)
	assert.ElementsMatch(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, values)

	for round := 0; round < 100; round++ {
		seen := make(map[int64]bool)
		for _, v := range g.sample(50, 10) {
			assert.False(t, seen[v], "value %d drawn twice", v)
			assert.GreaterOrEqual(t, v, int64(0))
			assert.Less(t, v, int64(50))
			seen[v] = true
		}
		assert.Len(t, seen, 10)
	}

	assert.Empty(t, g.sample(1<<62, 0))
}
