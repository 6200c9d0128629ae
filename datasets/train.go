package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
)

// GraspDataset adapts a BatchSource to gomlx's train.Dataset. Every Yield
// draws a fresh labeled batch; the stream never ends, so training loops
// bound it by steps.
type GraspDataset struct {
	Source BatchSource

	// BatchSize and GoodFraction are passed to RandomBatch.
	BatchSize    int
	GoodFraction float64

	// BatchesPerShard advances the source to its next shard after this many
	// batches. Zero keeps sampling the current shard.
	BatchesPerShard int

	yielded  int
	resetErr error
}

var _ train.Dataset = (*GraspDataset)(nil)

// NewGraspDataset creates a dataset yielding batches of batchSize records,
// goodFraction of them good.
func NewGraspDataset(src BatchSource, batchSize int, goodFraction float64) (*GraspDataset, error) {
	if src == nil {
		return nil, fmt.Errorf("batch source is nil")
	}
	if _, err := goodCount(batchSize, goodFraction); err != nil {
		return nil, err
	}
	return &GraspDataset{Source: src, BatchSize: batchSize, GoodFraction: goodFraction}, nil
}

// Name implements train.Dataset.
func (d *GraspDataset) Name() string {
	return "GraspDataset"
}

// Reset implements train.Dataset by rewinding the source to its start
// shard. A failure is reported by the next Yield.
func (d *GraspDataset) Reset() {
	d.yielded = 0
	d.resetErr = d.Source.Reset()
}

// Yield implements train.Dataset. Inputs are [grasps, features], labels are
// [labels].
func (d *GraspDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if d.resetErr != nil {
		err, d.resetErr = d.resetErr, nil
		return nil, nil, nil, fmt.Errorf("failed to reset grasp dataset: %w", err)
	}
	if d.BatchesPerShard > 0 && d.yielded > 0 && d.yielded%d.BatchesPerShard == 0 {
		if err := d.Source.AdvanceToNextShard(); err != nil {
			return nil, nil, nil, err
		}
	}

	batch, err := d.Source.RandomBatch(d.BatchSize, d.GoodFraction)
	if err != nil {
		return nil, nil, nil, err
	}
	grasps, features, lab, err := batch.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	d.yielded++
	return d, []*tensors.Tensor{grasps, features}, []*tensors.Tensor{lab}, nil
}
