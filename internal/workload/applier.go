package workload

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devrev/pairdb/tabletsim/internal/errors"
	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/service"
	"github.com/devrev/pairdb/tabletsim/internal/util/workerpool"
	"github.com/devrev/pairdb/tabletsim/internal/validation"
	"go.uber.org/zap"
)

// Result summarises one application of a mutation stream
type Result struct {
	Mutations      int
	ReplicaWrites  int
	ThresholdFlush int
	DrainFlush     int
	Duration       time.Duration
}

// Applier feeds mutations into a cluster and drains it afterwards.
// With Workers > 0 replica writes run on a keyed pool where each node is
// pinned to one worker, so every node still sees its writes in stream order.
type Applier struct {
	cluster   *service.Cluster
	validator *validation.Validator
	workers   int
	logger    *zap.Logger
}

// NewApplier creates an applier. workers <= 0 applies serially.
func NewApplier(cluster *service.Cluster, validator *validation.Validator, workers int, logger *zap.Logger) *Applier {
	return &Applier{
		cluster:   cluster,
		validator: validator,
		workers:   workers,
		logger:    logger,
	}
}

// Apply validates the whole stream, applies it and drains every memtable
func (a *Applier) Apply(ctx context.Context, mutations []model.Mutation) (*Result, error) {
	if a.validator != nil {
		if err := a.validator.ValidateMutations(mutations); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	var (
		result *Result
		err    error
	)
	if a.workers > 0 {
		result, err = a.applyPooled(ctx, mutations)
	} else {
		result, err = a.applySerial(mutations)
	}
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	a.logger.Info("Applied mutations",
		zap.Int("mutations", result.Mutations),
		zap.Int("replica_writes", result.ReplicaWrites),
		zap.Int("threshold_flushes", result.ThresholdFlush),
		zap.Int("drain_flushes", result.DrainFlush),
		zap.Int("workers", a.workers),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (a *Applier) applySerial(mutations []model.Mutation) (*Result, error) {
	nodes := a.cluster.Nodes()
	result := &Result{}

	for _, m := range mutations {
		tablet, err := a.cluster.FindTablet(m.PartitionKey)
		if err != nil {
			return nil, err
		}
		for _, r := range tablet.Replicas() {
			if nodes[r].Mutate(tablet.ID(), m.PartitionKey, m.ClusteringKey) {
				result.ThresholdFlush++
			}
			result.ReplicaWrites++
		}
		result.Mutations++
	}

	result.DrainFlush = a.cluster.Flush()
	return result, nil
}

func (a *Applier) applyPooled(ctx context.Context, mutations []model.Mutation) (*Result, error) {
	nodes := a.cluster.Nodes()
	pool := workerpool.New(ctx, &workerpool.Config{
		Name:    "replica-writes",
		Workers: a.workers,
		Logger:  a.logger,
	})

	var thresholdFlushes, drainFlushes atomic.Int64
	result := &Result{}

	submitErr := func() error {
		for i, m := range mutations {
			tablet, err := a.cluster.FindTablet(m.PartitionKey)
			if err != nil {
				return err
			}
			for _, r := range tablet.Replicas() {
				node := nodes[r]
				tabletID := tablet.ID()
				err := pool.Submit(ctx, workerpool.Task{
					ID:  fmt.Sprintf("mutation-%d-node-%d", i, r),
					Key: uint64(r),
					Fn: func(context.Context) error {
						if node.Mutate(tabletID, m.PartitionKey, m.ClusteringKey) {
							thresholdFlushes.Add(1)
						}
						return nil
					},
				})
				if err != nil {
					return err
				}
				result.ReplicaWrites++
			}
			result.Mutations++
		}

		// queued behind each node's last write
		for _, node := range nodes {
			err := pool.Submit(ctx, workerpool.Task{
				ID:  fmt.Sprintf("drain-node-%d", node.ID()),
				Key: uint64(node.ID()),
				Fn: func(context.Context) error {
					drainFlushes.Add(int64(node.Flush()))
					return nil
				},
			})
			if err != nil {
				return err
			}
		}
		return nil
	}()

	waitErr := pool.Wait()

	stats := pool.Stats()
	a.logger.Debug("Replica write pool finished",
		zap.Uint64("completed_tasks", stats.CompletedTasks),
		zap.Uint64("failed_tasks", stats.FailedTasks),
		zap.Uint64("rejected_tasks", stats.RejectedTasks),
		zap.Float64("success_rate", stats.SuccessRate()))

	if submitErr != nil {
		return nil, submitErr
	}
	if waitErr != nil {
		return nil, errors.InternalError("replica writes failed", waitErr)
	}

	result.ThresholdFlush = int(thresholdFlushes.Load())
	result.DrainFlush = int(drainFlushes.Load())
	return result, nil
}
