package datasets

import "fmt"

// Array is a dense row-major float32 matrix. Every shard array is stored
// this way regardless of the dtype it had on disk.
type Array struct {
	Data []float32
	Rows int
	Cols int
}

// NewArray wraps data as a rows x cols matrix.
func NewArray(rows, cols int, data []float32) (*Array, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid array dimensions [%d, %d]", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("array data length %d does not match shape [%d, %d]", len(data), rows, cols)
	}
	return &Array{Data: data, Rows: rows, Cols: cols}, nil
}

// Row returns a copy of row i.
func (a *Array) Row(i int) []float32 {
	row := make([]float32, a.Cols)
	copy(row, a.Data[i*a.Cols:(i+1)*a.Cols])
	return row
}

// Gather copies the given rows, in order, into a new array.
func (a *Array) Gather(indices []int) (*Array, error) {
	out := make([]float32, len(indices)*a.Cols)
	for pos, idx := range indices {
		if idx < 0 || idx >= a.Rows {
			return nil, fmt.Errorf("%w: row %d out of range [0, %d)", ErrMalformedShard, idx, a.Rows)
		}
		copy(out[pos*a.Cols:], a.Data[idx*a.Cols:(idx+1)*a.Cols])
	}
	return &Array{Data: out, Rows: len(indices), Cols: a.Cols}, nil
}

// Slices reshapes the flat buffer into per-row slices sharing its storage.
func (a *Array) Slices() [][]float32 {
	rows := make([][]float32, a.Rows)
	for i := range a.Rows {
		rows[i] = a.Data[i*a.Cols : (i+1)*a.Cols]
	}
	return rows
}

// concatRows stacks b under a. Empty operands are skipped so that a batch
// with zero good or zero bad rows still concatenates.
func concatRows(a, b *Array) (*Array, error) {
	if a.Rows == 0 {
		return b, nil
	}
	if b.Rows == 0 {
		return a, nil
	}
	if a.Cols != b.Cols {
		return nil, fmt.Errorf("%w: cannot stack arrays with %d and %d columns", ErrMalformedShard, a.Cols, b.Cols)
	}
	data := make([]float32, 0, len(a.Data)+len(b.Data))
	data = append(data, a.Data...)
	data = append(data, b.Data...)
	return &Array{Data: data, Rows: a.Rows + b.Rows, Cols: a.Cols}, nil
}
