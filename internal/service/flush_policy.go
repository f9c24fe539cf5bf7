package service

import (
	"math/rand"
	"time"
)

// FlushPolicy decides the row count at which a memtable is flushed.
// Threshold is evaluated after every mutation, so a randomized policy draws
// a fresh value for each check.
type FlushPolicy interface {
	Threshold(maxMemTableSize int) int
}

// ThresholdFunc adapts a plain function to FlushPolicy
type ThresholdFunc func(maxMemTableSize int) int

// Threshold implements FlushPolicy
func (f ThresholdFunc) Threshold(maxMemTableSize int) int {
	return f(maxMemTableSize)
}

// RandomThresholdPolicy draws the threshold uniformly from
// [int(maxSize*lowWatermark), maxSize], both ends included. Replicas of the
// same tablet use independent generators and so flush at different points.
type RandomThresholdPolicy struct {
	rng          *rand.Rand
	lowWatermark float64
}

// NewRandomThresholdPolicy creates a policy seeded with seed. A zero seed
// uses the current time.
func NewRandomThresholdPolicy(seed int64, lowWatermark float64) *RandomThresholdPolicy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if lowWatermark <= 0 || lowWatermark > 1 {
		lowWatermark = 0.9
	}
	return &RandomThresholdPolicy{
		rng:          rand.New(rand.NewSource(seed)),
		lowWatermark: lowWatermark,
	}
}

// Threshold implements FlushPolicy
func (p *RandomThresholdPolicy) Threshold(maxMemTableSize int) int {
	low := int(float64(maxMemTableSize) * p.lowWatermark)
	if low >= maxMemTableSize {
		return maxMemTableSize
	}
	return low + p.rng.Intn(maxMemTableSize-low+1)
}

// FixedThresholdPolicy always flushes at the same row count.
// Zero or negative means the node's maximum memtable size.
type FixedThresholdPolicy int

// Threshold implements FlushPolicy
func (p FixedThresholdPolicy) Threshold(maxMemTableSize int) int {
	if p <= 0 {
		return maxMemTableSize
	}
	return int(p)
}
