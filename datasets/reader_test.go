package datasets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewShardedReader_InvalidHooks(t *testing.T) {
	for _, hooks := range []int{0, 1, 5} {
		cfg := DefaultReaderConfig(filepath.Join(t.TempDir(), "does-not-exist"))
		cfg.NumHooks = hooks

		_, err := NewShardedReader(cfg)
		require.ErrorIs(t, err, ErrInvalidHooks)
		// rejected before any file was opened
		require.False(t, errors.Is(err, fs.ErrNotExist))
	}
}

func TestReaderConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReaderConfig)
	}{
		{"empty root", func(c *ReaderConfig) { c.Root = "" }},
		{"negative start dir", func(c *ReaderConfig) { c.StartDir = -1 }},
		{"negative end file", func(c *ReaderConfig) { c.EndFile = -1 }},
		{"start dir after end dir", func(c *ReaderConfig) { c.StartDir = 6 }},
		{"zero records per file", func(c *ReaderConfig) { c.RecordsPerFile = 0 }},
		{"negative cache", func(c *ReaderConfig) { c.CacheShards = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultReaderConfig("/data")
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	require.NoError(t, DefaultReaderConfig("/data").Validate())
}

func TestReaderConfig_DataPath(t *testing.T) {
	cfg := DefaultReaderConfig("/data")
	cfg.NumHooks = 3
	require.Equal(t, filepath.Join("/data", "3_hooks"), cfg.DataPath())

	cfg.Shape = "C+"
	require.Equal(t, filepath.Join("/data", "3_hooks_C+"), cfg.DataPath())

	cfg.Shape = ""
	require.Equal(t, filepath.Join("/data", "3_hooks"), cfg.DataPath())
}

func TestReaderConfig_NextAddrWalksGridCyclically(t *testing.T) {
	cfg := ReaderConfig{StartDir: 1, StartFile: 2, EndDir: 3, EndFile: 3}

	// (1,2) (1,3) then four files in each of dirs 2 and 3
	const cycle = 2 + 4 + 4
	addr := cfg.Start()
	seen := map[ShardAddr]bool{}
	for step := 1; step <= cycle; step++ {
		next := cfg.NextAddr(addr)
		require.GreaterOrEqual(t, next.Dir, cfg.StartDir)
		require.LessOrEqual(t, next.Dir, cfg.EndDir)
		require.GreaterOrEqual(t, next.File, 0)
		require.LessOrEqual(t, next.File, cfg.EndFile)

		if addr.File < cfg.EndFile {
			require.Equal(t, ShardAddr{Dir: addr.Dir, File: addr.File + 1}, next)
		}
		if step < cycle {
			require.NotEqual(t, cfg.Start(), next, "returned to start early at step %d", step)
		}
		seen[addr] = true
		addr = next
	}
	require.Equal(t, cfg.Start(), addr)
	require.Len(t, seen, cycle)
	require.True(t, seen[ShardAddr{Dir: 2, File: 0}])
	require.False(t, seen[ShardAddr{Dir: 1, File: 0}])
}

func TestShardedReader_SequentialReadsAndTransition(t *testing.T) {
	root := t.TempDir()
	const n = 4
	writeGrid(t, root, 2, "", 1, 1, n, false)

	r, err := NewShardedReader(gridConfig(root, 1, 1, n, false))
	require.NoError(t, err)
	require.Equal(t, ShardAddr{}, r.Addr())
	require.Equal(t, filepath.Join(root, "2_hooks", "dir_0"), r.CurrentDir())

	for i := range n {
		require.Equal(t, ShardAddr{}, r.Addr(), "transition before record %d", i)
		rec, err := r.NextGoodRecord()
		require.NoError(t, err)
		require.Equal(t, i, rec.Index)
		require.Equal(t, ShardAddr{}, rec.Addr)
		require.Equal(t, []float32{0, 0, float32(i)}, rec.Grasp)
		require.Equal(t, []float32{float32(i), float32(10 * i)}, rec.Feature)
		require.Equal(t, i, rec.State)
	}

	// exactly one transition, after the last record
	require.Equal(t, Cursor{Dir: 0, File: 1, InFile: 0, Passed: n}, r.Cursor())

	rec, err := r.NextGoodRecord()
	require.NoError(t, err)
	require.Equal(t, ShardAddr{Dir: 0, File: 1}, rec.Addr)
	require.Equal(t, 0, rec.Index)
}

func TestShardedReader_WrapsToStart(t *testing.T) {
	root := t.TempDir()
	const n = 3
	writeGrid(t, root, 2, "", 1, 1, n, false)

	r, err := NewShardedReader(gridConfig(root, 1, 1, n, false))
	require.NoError(t, err)

	records, err := r.ReadGoodRecords(4 * n)
	require.NoError(t, err)
	require.Len(t, records, 4*n)

	want := []ShardAddr{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for s, addr := range want {
		for i := range n {
			rec := records[s*n+i]
			require.Equal(t, addr, rec.Addr)
			require.Equal(t, i, rec.Index)
		}
	}
	require.Equal(t, ShardAddr{}, r.Addr())
	require.Equal(t, 4*n, r.Passed())
}

func TestShardedReader_AdvanceRespectsStartFile(t *testing.T) {
	root := t.TempDir()
	writeGrid(t, root, 2, "", 1, 2, 2, false)

	cfg := gridConfig(root, 1, 2, 2, false)
	cfg.StartFile = 1
	r, err := NewShardedReader(cfg)
	require.NoError(t, err)

	var visited []ShardAddr
	for range 6 {
		visited = append(visited, r.Addr())
		require.NoError(t, r.AdvanceToNextShard())
	}
	require.Equal(t, []ShardAddr{{0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}, {0, 1}}, visited)
}

func TestShardedReader_ShapeSuffix(t *testing.T) {
	root := t.TempDir()
	writeShard(t, root, 3, "C+", ShardAddr{}, 2, false)

	cfg := gridConfig(root, 0, 0, 2, false)
	cfg.NumHooks = 3
	cfg.Shape = "C+"
	r, err := NewShardedReader(cfg)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "3_hooks_C+"), r.Path())
}

func TestNewShardedReader_MissingStartShard(t *testing.T) {
	_, err := NewShardedReader(gridConfig(t.TempDir(), 0, 0, 2, false))
	require.ErrorIs(t, err, fs.ErrNotExist)

	var loadErr *ShardLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, ShardAddr{}, loadErr.Addr)
}

func TestNewShardedReader_CorruptArray(t *testing.T) {
	root := t.TempDir()
	writeShard(t, root, 2, "", ShardAddr{}, 2, false)
	dir := shardDir(t, root, 2, "", 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good_grasp_features_0.npy"), []byte("not an array"), 0644))

	_, err := NewShardedReader(gridConfig(root, 0, 0, 2, false))
	require.Error(t, err)
	require.False(t, errors.Is(err, fs.ErrNotExist))

	var loadErr *ShardLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, filepath.Join(dir, "good_grasp_features_0.npy"), loadErr.Path)
}

func TestNewShardedReader_CorruptStates(t *testing.T) {
	root := t.TempDir()
	writeShard(t, root, 2, "", ShardAddr{}, 2, false)
	dir := shardDir(t, root, 2, "", 0)
	// a pickled int where a list is expected
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good_grasp_mjc_states_0.mjc"), []byte{0x80, 0x02, 'K', 7, '.'}, 0644))

	_, err := NewShardedReader(gridConfig(root, 0, 0, 2, false))
	require.ErrorIs(t, err, ErrMalformedShard)
}

func TestShardedReader_FailedAdvanceKeepsShard(t *testing.T) {
	root := t.TempDir()
	const n = 2
	writeGrid(t, root, 2, "", 0, 1, n, true)
	dir := shardDir(t, root, 2, "", 0)
	require.NoError(t, os.Remove(filepath.Join(dir, "bad_grasp_mjc_states_1.mjc")))

	r, err := NewShardedReader(gridConfig(root, 0, 1, n, true))
	require.NoError(t, err)
	before := r.Shard()
	beforeGrasps := append([]float32(nil), before.categories[Good].Grasps.Data...)

	err = r.AdvanceToNextShard()
	require.ErrorIs(t, err, fs.ErrNotExist)

	require.Same(t, before, r.Shard())
	require.Equal(t, ShardAddr{}, r.Addr())
	require.Equal(t, beforeGrasps, r.Shard().categories[Good].Grasps.Data)
	_, ok := r.Shard().Category(Bad)
	require.True(t, ok)
}

func TestShardedReader_FailedAutoAdvanceDoesNotConsumeRecord(t *testing.T) {
	root := t.TempDir()
	const n = 2
	writeShard(t, root, 2, "", ShardAddr{}, n, false)

	r, err := NewShardedReader(gridConfig(root, 0, 1, n, false))
	require.NoError(t, err)

	_, err = r.NextGoodRecord()
	require.NoError(t, err)

	// shard (0,1) does not exist
	_, err = r.NextGoodRecord()
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Equal(t, Cursor{Dir: 0, File: 0, InFile: 1, Passed: 1}, r.Cursor())

	writeShard(t, root, 2, "", ShardAddr{Dir: 0, File: 1}, n, false)
	rec, err := r.NextGoodRecord()
	require.NoError(t, err)
	require.Equal(t, 1, rec.Index)
	require.Equal(t, ShardAddr{Dir: 0, File: 1}, r.Addr())
}

func TestShardedReader_Reset(t *testing.T) {
	root := t.TempDir()
	writeGrid(t, root, 2, "", 0, 1, 2, false)

	r, err := NewShardedReader(gridConfig(root, 0, 1, 2, false))
	require.NoError(t, err)
	_, err = r.ReadGoodRecords(3)
	require.NoError(t, err)
	require.Equal(t, ShardAddr{Dir: 0, File: 1}, r.Addr())

	require.NoError(t, r.Reset())
	require.Equal(t, Cursor{}, r.Cursor())
}

func TestShardedReader_CacheAvoidsReload(t *testing.T) {
	root := t.TempDir()
	const n = 2
	writeGrid(t, root, 2, "", 1, 1, n, true)

	cfg := gridConfig(root, 1, 1, n, true)
	cfg.CacheShards = 4
	r, err := NewShardedReader(cfg)
	require.NoError(t, err)

	// one full pass loads every shard once
	_, err = r.ReadGoodRecords(4 * n)
	require.NoError(t, err)
	require.Equal(t, 4, r.cache.Len())

	require.NoError(t, os.RemoveAll(filepath.Join(root, "2_hooks")))

	records, err := r.ReadGoodRecords(4 * n)
	require.NoError(t, err)
	require.Equal(t, ShardAddr{Dir: 1, File: 1}, records[len(records)-1].Addr)

	batch, err := r.RandomBatch(2, 0.5)
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
}

func TestShardedReader_WithoutCacheReloads(t *testing.T) {
	root := t.TempDir()
	writeGrid(t, root, 2, "", 0, 1, 1, false)

	r, err := NewShardedReader(gridConfig(root, 0, 1, 1, false))
	require.NoError(t, err)
	require.Nil(t, r.cache)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "2_hooks")))
	require.Error(t, r.AdvanceToNextShard())
}
