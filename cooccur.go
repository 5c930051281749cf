package glove

import (
	"github.com/pkg/errors"
)

// maxPairID is the largest word index the packed pair key can hold.
const maxPairID = 1<<32 - 1

// pairKey packs the unordered pair {i, j} into a single uint64 lookup key.
// The pair is canonicalized so the smaller index occupies the high bits;
// both orderings of a pair map to the same key. Injective for indices
// below 2^32.
func pairKey(i, j int) uint64 {
	if i > j {
		i, j = j, i
	}
	return uint64(i)<<32 | uint64(j)
}

// unpackPairKey recovers the canonical (row, col) pair, row <= col.
func unpackPairKey(key uint64) (int, int) {
	return int(key >> 32), int(key & 0xFFFFFFFF)
}

// Accumulator builds the sparse symmetric co-occurrence matrix from
// (i, j, weight) increments produced by the corpus scan. The matrix is
// symmetric, so only the upper triangle is stored: Increment(i, j, w) and
// Increment(j, i, w) land on the same cell. Diagonal cells (i == j) are
// ordinary entries.
type Accumulator struct {
	cells map[uint64]float64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		cells: make(map[uint64]float64, 1<<16),
	}
}

// Increment adds weight to the cell for the unordered pair {i, j},
// creating the cell if absent. Negative weights and out-of-range indices
// are contract violations and leave the accumulator unchanged.
func (a *Accumulator) Increment(i, j int, weight float64) error {
	if i < 0 || j < 0 || i > maxPairID || j > maxPairID {
		return errors.Errorf("cooccur: pair (%d, %d) outside valid index range", i, j)
	}
	if weight < 0 {
		return errors.Errorf("cooccur: negative weight %g for pair (%d, %d)", weight, i, j)
	}
	a.cells[pairKey(i, j)] += weight
	return nil
}

// Len returns the number of distinct pairs accumulated so far.
func (a *Accumulator) Len() int {
	return len(a.cells)
}

// Finalize drains the accumulator into three parallel slices with
// rows[k] <= cols[k] for every k. The triplet order follows map iteration
// and carries no meaning; callers wanting a particular order (or a
// shuffle, which helps SGD) impose it themselves. The accumulator is
// empty afterwards.
func (a *Accumulator) Finalize() (rows, cols []int, values []float64) {
	rows = make([]int, 0, len(a.cells))
	cols = make([]int, 0, len(a.cells))
	values = make([]float64, 0, len(a.cells))
	for key, v := range a.cells {
		i, j := unpackPairKey(key)
		rows = append(rows, i)
		cols = append(cols, j)
		values = append(values, v)
	}
	a.cells = make(map[uint64]float64)
	return rows, cols, values
}
