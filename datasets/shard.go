package datasets

import (
	"fmt"
	"path/filepath"
)

// ShardAddr is the (directory, file) grid address of a shard.
type ShardAddr struct {
	Dir  int
	File int
}

func (a ShardAddr) String() string {
	return fmt.Sprintf("(dir %d, file %d)", a.Dir, a.File)
}

// CategoryData holds the index-aligned arrays of one category of a shard:
// record i is (Grasps row i, Features row i, States[i]).
type CategoryData struct {
	Grasps   *Array
	Features *Array
	States   []SimState
}

// Len returns the number of records the category holds. Only the grasp
// array is consulted; the arrays are not cross-checked on load.
func (c *CategoryData) Len() int {
	return c.Grasps.Rows
}

// Shard is one fully loaded (directory, file) unit. Shards are never mutated
// after loading.
type Shard struct {
	Addr       ShardAddr
	categories map[Category]*CategoryData
}

// Category returns the data loaded for c, if any.
func (s *Shard) Category(c Category) (*CategoryData, bool) {
	data, ok := s.categories[c]
	return data, ok
}

// shardFiles returns the grasp, feature and state file names of category c
// for file index file.
func shardFiles(c Category, file int) (grasps, features, states string) {
	grasps = fmt.Sprintf("%s_grasps_%d.npy", c, file)
	features = fmt.Sprintf("%s_grasp_features_%d.npy", c, file)
	states = fmt.Sprintf("%s_grasp_mjc_states_%d.mjc", c, file)
	return grasps, features, states
}

// loadCategory reads the three files of one category. Any failure is
// reported as a *ShardLoadError naming the offending file.
func loadCategory(dir string, addr ShardAddr, c Category) (*CategoryData, error) {
	graspsName, featuresName, statesName := shardFiles(c, addr.File)

	graspsPath := filepath.Join(dir, graspsName)
	grasps, err := readNpy(graspsPath)
	if err != nil {
		return nil, &ShardLoadError{Addr: addr, Path: graspsPath, Err: err}
	}

	featuresPath := filepath.Join(dir, featuresName)
	features, err := readNpy(featuresPath)
	if err != nil {
		return nil, &ShardLoadError{Addr: addr, Path: featuresPath, Err: err}
	}

	statesPath := filepath.Join(dir, statesName)
	states, err := readStates(statesPath)
	if err != nil {
		return nil, &ShardLoadError{Addr: addr, Path: statesPath, Err: err}
	}

	return &CategoryData{Grasps: grasps, Features: features, States: states}, nil
}
