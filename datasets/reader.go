package datasets

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DefaultShape is the hook shape whose data lives directly under
// <hooks>_hooks without a suffix.
const DefaultShape = "C"

// ReaderConfig describes which part of a grasp dataset a ShardedReader walks.
type ReaderConfig struct {
	// Root is the dataset root containing the <hooks>_hooks directories.
	Root string

	// NumHooks selects the <hooks>_hooks directory. Must be 2, 3 or 4.
	NumHooks int

	// Shape is the hook shape tag. Empty means DefaultShape.
	Shape string

	// BadGrasps also loads the bad_* files of every shard. Required for
	// RandomBatch with a bad share and for BadRandomBatch.
	BadGrasps bool

	// Inclusive grid bounds. File indices restart at 0 in every directory
	// after the first.
	StartDir  int
	StartFile int
	EndDir    int
	EndFile   int

	// RecordsPerFile is the number of records in every shard.
	RecordsPerFile int

	// CacheShards keeps up to this many loaded shards in memory besides the
	// current one. Zero disables the cache.
	CacheShards int

	// Seed for batch sampling. If zero, a time-based seed is used.
	Seed int64

	// Logger receives shard transitions at debug level. Nil means no logging.
	Logger *zap.Logger
}

// DefaultReaderConfig returns the conventional layout of a generated grasp
// dataset: two C-shaped hooks, 6 directories of 5 files, 10000 records each.
func DefaultReaderConfig(root string) ReaderConfig {
	return ReaderConfig{
		Root:           root,
		NumHooks:       2,
		Shape:          DefaultShape,
		EndDir:         5,
		EndFile:        4,
		RecordsPerFile: 10000,
	}
}

// Validate checks the configuration without touching the filesystem.
func (c ReaderConfig) Validate() error {
	if c.NumHooks < 2 || c.NumHooks > 4 {
		return fmt.Errorf("%w: got %d", ErrInvalidHooks, c.NumHooks)
	}
	if c.Root == "" {
		return fmt.Errorf("%w: empty root path", ErrInvalidConfig)
	}
	if c.StartDir < 0 || c.StartFile < 0 || c.EndDir < 0 || c.EndFile < 0 {
		return fmt.Errorf("%w: negative shard index in start (%d, %d) or end (%d, %d)",
			ErrInvalidConfig, c.StartDir, c.StartFile, c.EndDir, c.EndFile)
	}
	if c.StartDir > c.EndDir {
		return fmt.Errorf("%w: start dir %d is after end dir %d", ErrInvalidConfig, c.StartDir, c.EndDir)
	}
	if c.RecordsPerFile <= 0 {
		return fmt.Errorf("%w: records per file must be positive, got %d", ErrInvalidConfig, c.RecordsPerFile)
	}
	if c.CacheShards < 0 {
		return fmt.Errorf("%w: cache size must not be negative, got %d", ErrInvalidConfig, c.CacheShards)
	}
	return nil
}

// DataPath returns root/<hooks>_hooks, suffixed with _<shape> unless the
// shape is DefaultShape.
func (c ReaderConfig) DataPath() string {
	name := strconv.Itoa(c.NumHooks) + "_hooks"
	if c.Shape != "" && c.Shape != DefaultShape {
		name += "_" + c.Shape
	}
	return filepath.Join(c.Root, name)
}

// Start returns the first shard of the walk.
func (c ReaderConfig) Start() ShardAddr {
	return ShardAddr{Dir: c.StartDir, File: c.StartFile}
}

// NextAddr returns the shard that follows addr in the cyclic row-major walk.
// The file index wraps to 0 past EndFile and bumps the directory; past
// EndDir the walk returns to Start.
func (c ReaderConfig) NextAddr(addr ShardAddr) ShardAddr {
	addr.File++
	if addr.File > c.EndFile {
		addr.File = 0
		addr.Dir++
	}
	if addr.Dir > c.EndDir {
		return c.Start()
	}
	return addr
}

// Cursor is the sequential-read position of a reader.
type Cursor struct {
	Dir    int
	File   int
	InFile int
	// Passed counts records served since construction or the last Reset.
	Passed int
}

// Record is one aligned grasp, feature and simulator state.
type Record struct {
	Addr    ShardAddr
	Index   int
	Grasp   []float32
	Feature []float32
	State   SimState
}

// ShardedReader walks a grasp dataset one shard at a time. It is not safe
// for concurrent use. Advancing replaces every array a previous batch call
// sampled from, so interleaving sequential reads with batch sampling only
// keeps batches on one shard if no advance happens in between.
type ShardedReader struct {
	cfg    ReaderConfig
	cursor Cursor
	shard  *Shard
	cache  *ShardCache
	rng    *rand.Rand
	logger *zap.Logger
}

// NewShardedReader validates cfg and eagerly loads the start shard.
func NewShardedReader(cfg ReaderConfig) (*ShardedReader, error) {
	if cfg.Shape == "" {
		cfg.Shape = DefaultShape
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ShardedReader{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger.With(zap.String("path", cfg.DataPath())),
	}
	if cfg.CacheShards > 0 {
		cache, err := NewShardCache(cfg.CacheShards)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}

	if err := r.Reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Config returns the effective configuration.
func (r *ShardedReader) Config() ReaderConfig {
	return r.cfg
}

// Path returns the hooks directory the reader walks.
func (r *ShardedReader) Path() string {
	return r.cfg.DataPath()
}

// CurrentDir returns the directory of the current shard.
func (r *ShardedReader) CurrentDir() string {
	return r.dirPath(r.cursor.Dir)
}

func (r *ShardedReader) dirPath(dir int) string {
	return filepath.Join(r.cfg.DataPath(), "dir_"+strconv.Itoa(dir))
}

func (r *ShardedReader) Cursor() Cursor {
	return r.cursor
}

// Addr returns the address of the current shard.
func (r *ShardedReader) Addr() ShardAddr {
	return ShardAddr{Dir: r.cursor.Dir, File: r.cursor.File}
}

func (r *ShardedReader) Passed() int {
	return r.cursor.Passed
}

// Shard returns the current shard.
func (r *ShardedReader) Shard() *Shard {
	return r.shard
}

// Reset moves the cursor back to the start shard and clears the served
// record count. On failure the reader is left as it was.
func (r *ShardedReader) Reset() error {
	start := r.cfg.Start()
	shard, err := r.fetch(start)
	if err != nil {
		return err
	}
	r.commit(shard)
	r.cursor.Passed = 0
	return nil
}

// AdvanceToNextShard loads the next shard of the walk and rewinds the
// in-file position. On failure neither the cursor nor the current shard
// changes.
func (r *ShardedReader) AdvanceToNextShard() error {
	next := r.cfg.NextAddr(r.Addr())
	shard, err := r.fetch(next)
	if err != nil {
		return err
	}
	if next == r.cfg.Start() {
		r.logger.Debug("wrapped to start shard", zap.Int("passed", r.cursor.Passed))
	}
	r.commit(shard)
	return nil
}

// LoadShard reads every file of the shard at addr. It returns either a
// complete shard or an error, and never changes the reader.
func (r *ShardedReader) LoadShard(addr ShardAddr) (*Shard, error) {
	dir := r.dirPath(addr.Dir)
	shard := &Shard{Addr: addr, categories: make(map[Category]*CategoryData, 2)}

	categories := []Category{Good}
	if r.cfg.BadGrasps {
		categories = append(categories, Bad)
	}
	for _, c := range categories {
		data, err := loadCategory(dir, addr, c)
		if err != nil {
			return nil, err
		}
		shard.categories[c] = data
	}

	r.logger.Debug("loaded shard",
		zap.Int("dir", addr.Dir),
		zap.Int("file", addr.File),
		zap.Int("records", shard.categories[Good].Len()))
	return shard, nil
}

// fetch returns the shard at addr from the cache or the filesystem.
func (r *ShardedReader) fetch(addr ShardAddr) (*Shard, error) {
	if r.cache != nil {
		if shard, ok := r.cache.Get(addr); ok {
			return shard, nil
		}
	}
	shard, err := r.LoadShard(addr)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Add(shard)
	}
	return shard, nil
}

func (r *ShardedReader) commit(shard *Shard) {
	r.shard = shard
	r.cursor.Dir = shard.Addr.Dir
	r.cursor.File = shard.Addr.File
	r.cursor.InFile = 0
}

// NextGoodRecord returns the good record at the cursor and moves past it.
// After the last record of a shard the next shard is loaded before
// returning. If that load fails the record is not consumed: the cursor is
// unchanged and the error is returned.
func (r *ShardedReader) NextGoodRecord() (Record, error) {
	good, _ := r.shard.Category(Good)
	i := r.cursor.InFile
	if i >= good.Len() || i >= good.Features.Rows || i >= len(good.States) {
		return Record{}, fmt.Errorf("%w: record %d of shard %s is out of range", ErrMalformedShard, i, r.shard.Addr)
	}

	rec := Record{
		Addr:    r.shard.Addr,
		Index:   i,
		Grasp:   good.Grasps.Row(i),
		Feature: good.Features.Row(i),
		State:   good.States[i],
	}

	if i+1 >= r.cfg.RecordsPerFile {
		if err := r.AdvanceToNextShard(); err != nil {
			return Record{}, fmt.Errorf("failed to advance past shard %s: %w", rec.Addr, err)
		}
	} else {
		r.cursor.InFile++
	}
	r.cursor.Passed++
	return rec, nil
}

// ReadGoodRecords reads n records sequentially. On error it returns the
// records read so far.
func (r *ShardedReader) ReadGoodRecords(n int) ([]Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("record count must not be negative, got %d", n)
	}
	records := make([]Record, 0, n)
	for range n {
		rec, err := r.NextGoodRecord()
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}
