package datasets

// This package reads pre-generated grasp datasets and presents them as
// records and mini-batches suitable for model training.
//
// Layout on disk is a grid of shards, each shard holding a fixed number of
// records per category:
//
//	<root>/<hooks>_hooks[_<shape>]/dir_<d>/
//	    good_grasps_<f>.npy
//	    good_grasp_features_<f>.npy
//	    good_grasp_mjc_states_<f>.mjc
//	    bad_grasps_<f>.npy            (only read when bad grasps are enabled)
//	    bad_grasp_features_<f>.npy
//	    bad_grasp_mjc_states_<f>.mjc
//
// The ShardedReader keeps one shard resident at a time. Sequential reads walk
// the grid row-major (file index first) and wrap back to the start shard, so
// the record stream never ends; callers bound it themselves. Random batches
// are drawn without replacement from the resident shard only.
//
// Notes on gomlx tensors:
//   - Batches are kept as flat float32 buffers with shape metadata (Array).
//     Batch.ToGomlxTensors and GraspDataset convert them when feeding a gomlx
//     training loop.

// Category distinguishes successful (good) from unsuccessful (bad) grasps.
type Category string

const (
	Good Category = "good"
	Bad  Category = "bad"
)

// SimState is one decoded simulator state snapshot, usually a
// *PickledObject tree. The reader never interprets it.
type SimState = any

// BatchSource is the part of ShardedReader that batch consumers need. It
// keeps GraspDataset and LabeledSampler testable without files on disk.
type BatchSource interface {
	RandomBatch(batchSize int, goodFraction float64) (*Batch, error)
	GoodRandomBatch(batchSize int) (*Batch, error)
	BadRandomBatch(batchSize int) (*Batch, error)
	AdvanceToNextShard() error
	Reset() error
}
