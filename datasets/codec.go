package datasets

import (
	"bufio"
	"fmt"
	"math"
	"math/bits"
	"os"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/sbinet/npyio"
)

// readNpy loads a .npy file as a 2-D float32 array. 1-D arrays become a
// single column and trailing dimensions beyond the second are flattened.
func readNpy(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r, err := npyio.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}

	descr := r.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("%w: fortran-ordered arrays are not supported", ErrMalformedShard)
	}
	rows, cols, err := matrixDims(descr.Shape)
	if err != nil {
		return nil, err
	}

	elemSize, ok := npyElemSize[descr.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported npy dtype %q", ErrMalformedShard, descr.Type)
	}
	n, err := checkedMul(rows, cols)
	if err != nil {
		return nil, err
	}
	// the payload can never be larger than the file holding it
	size, err := checkedMul(n, elemSize)
	if err != nil {
		return nil, err
	}
	if int64(size) > info.Size() {
		return nil, fmt.Errorf("%w: shape %v needs %d bytes, file has %d",
			ErrMalformedShard, descr.Shape, size, info.Size())
	}

	var data []float32
	switch descr.Type {
	case "<f4":
		data, err = readAs[float32](r, n)
	case "<f8":
		data, err = readAs[float64](r, n)
	case "<i4":
		data, err = readAs[int32](r, n)
	case "<i8":
		data, err = readAs[int64](r, n)
	default:
		return nil, fmt.Errorf("%w: unsupported npy dtype %q", ErrMalformedShard, descr.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read npy data: %w", err)
	}
	return NewArray(rows, cols, data)
}

func readAs[T float32 | float64 | int32 | int64](r *npyio.Reader, n int) ([]float32, error) {
	buf := make([]T, n)
	if err := r.Read(&buf); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i, v := range buf {
		out[i] = float32(v)
	}
	return out, nil
}

var npyElemSize = map[string]int{"<f4": 4, "<f8": 8, "<i4": 4, "<i8": 8}

func matrixDims(shape []int) (rows, cols int, err error) {
	if len(shape) == 0 {
		return 0, 0, fmt.Errorf("%w: scalar npy array where records were expected", ErrMalformedShard)
	}
	for _, d := range shape {
		if d < 0 {
			return 0, 0, fmt.Errorf("%w: negative dimension in shape %v", ErrMalformedShard, shape)
		}
	}
	cols = 1
	for _, d := range shape[1:] {
		if cols, err = checkedMul(cols, d); err != nil {
			return 0, 0, err
		}
	}
	return shape[0], cols, nil
}

// checkedMul multiplies two non-negative ints, failing on overflow.
func checkedMul(a, b int) (int, error) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt {
		return 0, fmt.Errorf("%w: array size %d x %d overflows", ErrMalformedShard, a, b)
	}
	return int(lo), nil
}

// readStates unpickles a .mjc blob. The top-level object must be a list or
// tuple; its elements are returned untouched. Classes the unpickler does not
// know, numpy arrays and simulator state tuples among them, decode as
// *PickledObject.
func readStates(path string) ([]SimState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	u := pickle.NewUnpickler(bufio.NewReader(f))
	u.FindClass = findPickledClass
	obj, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to unpickle simulator states: %w", err)
	}

	switch v := obj.(type) {
	case *types.List:
		return toStates(*v), nil
	case types.List:
		return toStates(v), nil
	case *types.Tuple:
		return toStates(*v), nil
	case types.Tuple:
		return toStates(v), nil
	default:
		return nil, fmt.Errorf("%w: state blob holds %T, want a sequence", ErrMalformedShard, obj)
	}
}

func toStates(items []interface{}) []SimState {
	states := make([]SimState, len(items))
	copy(states, items)
	return states
}
