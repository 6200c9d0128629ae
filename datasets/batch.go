package datasets

import (
	"fmt"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// splitTolerance absorbs float error in batchSize*goodFraction so that, for
// example, 10*0.7 yields 7 good records rather than 6.
const splitTolerance = 1e-9

// Batch is a set of records sampled from one shard. Labels is 1 for good and
// 0 for bad records, and is nil for single-category batches.
type Batch struct {
	Grasps   *Array
	Features *Array
	Labels   []float32
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return b.Grasps.Rows
}

// Inputs returns, per record, the grasp followed by the feature vector.
func (b *Batch) Inputs() [][]float32 {
	inputs := make([][]float32, b.Len())
	for i := range inputs {
		in := make([]float32, 0, b.Grasps.Cols+b.Features.Cols)
		in = append(in, b.Grasps.Data[i*b.Grasps.Cols:(i+1)*b.Grasps.Cols]...)
		in = append(in, b.Features.Data[i*b.Features.Cols:(i+1)*b.Features.Cols]...)
		inputs[i] = in
	}
	return inputs
}

// ToGomlxTensors converts the batch to gomlx tensors shaped [N, D1], [N, D2]
// and [N]. labels is nil when the batch has no labels.
func (b *Batch) ToGomlxTensors() (grasps, features, labels *tensors.Tensor, err error) {
	if b.Features.Rows != b.Grasps.Rows {
		return nil, nil, nil, fmt.Errorf("grasps and features batch sizes don't match: %d != %d",
			b.Grasps.Rows, b.Features.Rows)
	}
	grasps = tensors.FromAnyValue(b.Grasps.Slices())
	features = tensors.FromAnyValue(b.Features.Slices())
	if b.Labels != nil {
		labels = tensors.FromAnyValue(b.Labels)
	}
	return grasps, features, labels, nil
}

// goodCount splits a batch into its good share, rounding down.
func goodCount(batchSize int, goodFraction float64) (int, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	if math.IsNaN(goodFraction) || goodFraction < 0 || goodFraction > 1 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidFraction, goodFraction)
	}
	return int(math.Floor(float64(batchSize)*goodFraction + splitTolerance)), nil
}

// RandomBatch samples floor(batchSize*goodFraction) good and the remaining
// bad records from the current shard, each without replacement and
// independently of the other. Good rows come first, then bad rows.
func (r *ShardedReader) RandomBatch(batchSize int, goodFraction float64) (*Batch, error) {
	nGood, err := goodCount(batchSize, goodFraction)
	if err != nil {
		return nil, err
	}
	nBad := batchSize - nGood

	good, err := r.sample(Good, nGood)
	if err != nil {
		return nil, err
	}
	bad := &Batch{
		Grasps:   &Array{Cols: good.Grasps.Cols},
		Features: &Array{Cols: good.Features.Cols},
	}
	if nBad > 0 {
		bad, err = r.sample(Bad, nBad)
		if err != nil {
			return nil, err
		}
	}

	grasps, err := concatRows(good.Grasps, bad.Grasps)
	if err != nil {
		return nil, err
	}
	features, err := concatRows(good.Features, bad.Features)
	if err != nil {
		return nil, err
	}
	labels := make([]float32, batchSize)
	for i := range nGood {
		labels[i] = 1
	}
	return &Batch{Grasps: grasps, Features: features, Labels: labels}, nil
}

// GoodRandomBatch samples batchSize good records from the current shard
// without replacement.
func (r *ShardedReader) GoodRandomBatch(batchSize int) (*Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	return r.sample(Good, batchSize)
}

// BadRandomBatch samples batchSize bad records from the current shard
// without replacement.
func (r *ShardedReader) BadRandomBatch(batchSize int) (*Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	return r.sample(Bad, batchSize)
}

// sample draws k distinct records of category c. The population is the
// first RecordsPerFile records of the shard.
func (r *ShardedReader) sample(c Category, k int) (*Batch, error) {
	data, ok := r.shard.Category(c)
	if !ok {
		return nil, fmt.Errorf("%w: cannot sample %d %s records", ErrBadGraspsDisabled, k, c)
	}
	population := min(r.cfg.RecordsPerFile, data.Len())
	if k > population {
		return nil, fmt.Errorf("%w: requested %d %s records, shard %s holds %d",
			ErrSampleTooLarge, k, c, r.shard.Addr, population)
	}

	indices := r.rng.Perm(population)[:k]
	grasps, err := data.Grasps.Gather(indices)
	if err != nil {
		return nil, err
	}
	features, err := data.Features.Gather(indices)
	if err != nil {
		return nil, err
	}
	return &Batch{Grasps: grasps, Features: features}, nil
}
