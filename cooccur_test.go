package glove

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyCanonical(t *testing.T) {
	assert.Equal(t, pairKey(3, 7), pairKey(7, 3))
	assert.Equal(t, pairKey(0, 0), pairKey(0, 0))

	i, j := unpackPairKey(pairKey(7, 3))
	assert.Equal(t, 3, i)
	assert.Equal(t, 7, j)
}

func TestPairKeyInjectivity(t *testing.T) {
	// Boundary ids and a small dense grid, all distinct canonical pairs
	// must produce distinct keys.
	ids := []int{0, 1, 2, 255, 1 << 16, maxPairID - 1, maxPairID}

	seen := make(map[uint64][2]int)
	for _, i := range ids {
		for _, j := range ids {
			if i > j {
				continue
			}
			key := pairKey(i, j)
			if prev, ok := seen[key]; ok {
				t.Fatalf("key collision: (%d,%d) and (%d,%d) both map to %d",
					prev[0], prev[1], i, j, key)
			}
			seen[key] = [2]int{i, j}
		}
	}
}

func TestAccumulatorSymmetry(t *testing.T) {
	acc := NewAccumulator()

	// Both argument orders land on the same cell
	require.NoError(t, acc.Increment(2, 5, 1.5))
	require.NoError(t, acc.Increment(5, 2, 2.5))
	require.NoError(t, acc.Increment(2, 5, 1.0))

	assert.Equal(t, 1, acc.Len())

	rows, cols, values := acc.Finalize()
	require.Len(t, values, 1)
	assert.Equal(t, 2, rows[0])
	assert.Equal(t, 5, cols[0])
	assert.InDelta(t, 5.0, values[0], 1e-12)
}

func TestAccumulatorSelfPair(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.Increment(4, 4, 0.5))
	require.NoError(t, acc.Increment(4, 4, 0.5))

	rows, cols, values := acc.Finalize()
	require.Len(t, values, 1)
	assert.Equal(t, 4, rows[0])
	assert.Equal(t, 4, cols[0])
	assert.InDelta(t, 1.0, values[0], 1e-12)
}

func TestAccumulatorContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		i, j   int
		weight float64
	}{
		{"negative weight", 1, 2, -0.5},
		{"negative row", -1, 2, 1.0},
		{"negative col", 1, -2, 1.0},
		{"row above id range", maxPairID + 1, 0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator()
			assert.Error(t, acc.Increment(tt.i, tt.j, tt.weight))
			assert.Equal(t, 0, acc.Len())
		})
	}
}

func TestAccumulatorZeroWeight(t *testing.T) {
	// Zero is not negative: the cell is created with value 0.
	acc := NewAccumulator()
	require.NoError(t, acc.Increment(0, 1, 0))
	assert.Equal(t, 1, acc.Len())
}

func TestFinalizeDrains(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.Increment(0, 1, 1))
	require.NoError(t, acc.Increment(1, 2, 2))

	rows, cols, values := acc.Finalize()
	assert.Len(t, rows, 2)
	assert.Len(t, cols, 2)
	assert.Len(t, values, 2)
	assert.Equal(t, 0, acc.Len())

	// Canonical orientation holds for every triplet
	for k := range rows {
		assert.LessOrEqual(t, rows[k], cols[k])
	}

	// The accumulator is reusable after draining
	require.NoError(t, acc.Increment(3, 4, 1))
	assert.Equal(t, 1, acc.Len())
}
