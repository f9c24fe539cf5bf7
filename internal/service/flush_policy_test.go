package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomThresholdPolicy_Range(t *testing.T) {
	tests := []struct {
		name      string
		maxSize   int
		watermark float64
		low, high int
	}{
		{"memtable of 10", 10, 0.9, 9, 10},
		{"memtable of 550", 550, 0.9, 495, 550},
		{"memtable of 1", 1, 0.9, 0, 1},
		{"bad watermark falls back", 100, 1.5, 90, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewRandomThresholdPolicy(42, tt.watermark)
			seen := make(map[int]bool)
			for i := 0; i < 5000; i++ {
				v := policy.Threshold(tt.maxSize)
				assert.GreaterOrEqual(t, v, tt.low)
				assert.LessOrEqual(t, v, tt.high)
				seen[v] = true
			}
			assert.True(t, seen[tt.low], "lower bound never drawn")
			assert.True(t, seen[tt.high], "upper bound never drawn")
		})
	}
}

func TestRandomThresholdPolicy_Seeded(t *testing.T) {
	a := NewRandomThresholdPolicy(7, 0.9)
	b := NewRandomThresholdPolicy(7, 0.9)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Threshold(600), b.Threshold(600))
	}
}

func TestFixedThresholdPolicy(t *testing.T) {
	assert.Equal(t, 10, FixedThresholdPolicy(0).Threshold(10))
	assert.Equal(t, 3, FixedThresholdPolicy(3).Threshold(10))
	assert.Equal(t, 4, ThresholdFunc(func(int) int { return 4 }).Threshold(10))
}
