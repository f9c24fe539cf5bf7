package validation

import (
	"github.com/devrev/pairdb/tabletsim/internal/errors"
	"github.com/devrev/pairdb/tabletsim/internal/model"
)

// Validator checks mutations and tablet bounds against the key space
type Validator struct {
	maxPartitionKey int64
}

// NewValidator creates a validator for partition keys in [0, maxPartitionKey]
func NewValidator(maxPartitionKey int64) *Validator {
	return &Validator{
		maxPartitionKey: maxPartitionKey,
	}
}

// ValidateMutation validates a single mutation
func (v *Validator) ValidateMutation(m model.Mutation) error {
	if m.PartitionKey < 0 {
		return errors.InvalidMutation(m.PartitionKey, m.ClusteringKey, "partition key cannot be negative")
	}
	if m.PartitionKey > v.maxPartitionKey {
		return errors.InvalidMutation(m.PartitionKey, m.ClusteringKey, "partition key exceeds the key space").
			WithDetail("max_partition_key", v.maxPartitionKey)
	}
	if m.ClusteringKey < 0 {
		return errors.InvalidMutation(m.PartitionKey, m.ClusteringKey, "clustering key cannot be negative")
	}
	return nil
}

// ValidateMutations validates a batch, stopping at the first bad mutation
func (v *Validator) ValidateMutations(mutations []model.Mutation) error {
	for i, m := range mutations {
		if err := v.ValidateMutation(m); err != nil {
			return errors.InvalidArgument("invalid mutation in stream", err).
				WithDetail("index", i)
		}
	}
	return nil
}

// ValidateTabletBounds checks caller supplied upper bounds: inside the key
// space and free of duplicates
func (v *Validator) ValidateTabletBounds(bounds []int64) error {
	seen := make(map[int64]bool, len(bounds))
	for _, b := range bounds {
		if b < 0 || b > v.maxPartitionKey {
			return errors.InvalidArgument("tablet upper bound outside the key space", nil).
				WithDetail("upper_bound", b).
				WithDetail("max_partition_key", v.maxPartitionKey)
		}
		if seen[b] {
			return errors.DuplicateTablet(b)
		}
		seen[b] = true
	}
	return nil
}
