package datasets

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHooks is returned when the hook count is not 2, 3 or 4.
	ErrInvalidHooks = errors.New("num hooks must be one of 2, 3, 4")
	// ErrInvalidConfig covers every other rejected ReaderConfig field.
	ErrInvalidConfig = errors.New("invalid reader config")
	// ErrBadGraspsDisabled is returned when bad records are requested from a
	// reader constructed without bad grasps.
	ErrBadGraspsDisabled = errors.New("bad grasps were not loaded")
	// ErrSampleTooLarge is returned when a draw without replacement asks for
	// more records than the shard holds.
	ErrSampleTooLarge = errors.New("sample size exceeds shard population")
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrInvalidFraction  = errors.New("good fraction must be within [0, 1]")
	// ErrMalformedShard is returned for shard contents the reader cannot index.
	ErrMalformedShard = errors.New("malformed shard")
)

// ShardLoadError reports which file of which shard failed to load. It wraps
// the underlying error, so errors.Is(err, fs.ErrNotExist) works for missing
// files.
type ShardLoadError struct {
	Addr ShardAddr
	Path string
	Err  error
}

func (e *ShardLoadError) Error() string {
	return fmt.Sprintf("failed to load shard %s from %s: %v", e.Addr, e.Path, e.Err)
}

func (e *ShardLoadError) Unwrap() error {
	return e.Err
}
