package datasets

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// writeNpy writes a rows x cols float64 matrix to path.
func writeNpy(t *testing.T, path string, rows, cols int, data []float64) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create npy %s: %v", path, err)
	}
	defer f.Close()

	if err := npyio.Write(f, mat.NewDense(rows, cols, data)); err != nil {
		t.Fatalf("failed to write npy %s: %v", path, err)
	}
}

// writeStates writes a protocol 2 pickle holding the list [values...].
// Values must fit in a byte.
func writeStates(t *testing.T, path string, values []int) {
	t.Helper()
	buf := []byte{0x80, 0x02, ']'}
	if len(values) > 0 {
		buf = append(buf, '(')
		for _, v := range values {
			buf = append(buf, 'K', byte(v))
		}
		buf = append(buf, 'e')
	}
	buf = append(buf, '.')
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("failed to write states %s: %v", path, err)
	}
}

// shardDir returns (and creates) root/<hooks>_hooks[_shape]/dir_<dir>.
func shardDir(t *testing.T, root string, hooks int, shape string, dir int) string {
	t.Helper()
	name := strconv.Itoa(hooks) + "_hooks"
	if shape != "" && shape != DefaultShape {
		name += "_" + shape
	}
	path := filepath.Join(root, name, "dir_"+strconv.Itoa(dir))
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	return path
}

// writeShard writes one shard of n records per category.
//
// Good record i has grasp [dir, file, i], feature [i, 10*i] and state i.
// Bad record i has grasp [dir, file, i], feature [-(i+1), -10*(i+1)] and
// state 100+i, so the two categories can be told apart in batches.
func writeShard(t *testing.T, root string, hooks int, shape string, addr ShardAddr, n int, withBad bool) {
	t.Helper()
	dir := shardDir(t, root, hooks, shape, addr.Dir)

	write := func(c Category, feature func(i int) (float64, float64), state func(i int) int) {
		grasps := make([]float64, 0, n*3)
		features := make([]float64, 0, n*2)
		states := make([]int, 0, n)
		for i := range n {
			grasps = append(grasps, float64(addr.Dir), float64(addr.File), float64(i))
			f0, f1 := feature(i)
			features = append(features, f0, f1)
			states = append(states, state(i))
		}
		g, f, s := shardFiles(c, addr.File)
		writeNpy(t, filepath.Join(dir, g), n, 3, grasps)
		writeNpy(t, filepath.Join(dir, f), n, 2, features)
		writeStates(t, filepath.Join(dir, s), states)
	}

	write(Good,
		func(i int) (float64, float64) { return float64(i), float64(10 * i) },
		func(i int) int { return i })
	if withBad {
		write(Bad,
			func(i int) (float64, float64) { return -float64(i + 1), -float64(10 * (i + 1)) },
			func(i int) int { return 100 + i })
	}
}

// writeGrid writes every shard of the (0,0)..(endDir,endFile) grid.
func writeGrid(t *testing.T, root string, hooks int, shape string, endDir, endFile, n int, withBad bool) {
	t.Helper()
	for d := 0; d <= endDir; d++ {
		for f := 0; f <= endFile; f++ {
			writeShard(t, root, hooks, shape, ShardAddr{Dir: d, File: f}, n, withBad)
		}
	}
}

// gridConfig returns a reader config over a fixture grid written by writeGrid.
func gridConfig(root string, endDir, endFile, n int, withBad bool) ReaderConfig {
	return ReaderConfig{
		Root:           root,
		NumHooks:       2,
		BadGrasps:      withBad,
		EndDir:         endDir,
		EndFile:        endFile,
		RecordsPerFile: n,
		Seed:           42,
	}
}
