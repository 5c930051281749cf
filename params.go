package glove

import (
	"math/rand"
)

// gradSqFloor is the initial value of every squared-gradient accumulator.
// Strictly positive so the first AdaGrad step never divides by zero.
const gradSqFloor = 1.0

// Parameters is the mutable numeric state being fit: word and context
// embeddings, their scalar biases, and one AdaGrad squared-gradient
// accumulator per trainable scalar. Shapes are fixed at construction;
// the only legal mutation afterwards is the AdaGrad update applied by the
// trainer's workers, which write these tables concurrently without
// synchronization.
type Parameters struct {
	W      [][]float64 // Word vector matrix
	WTilde [][]float64 // Context vector matrix
	B      []float64   // Biases for words
	BTilde []float64   // Biases for contexts

	GradSqW      [][]float64 // Accumulated squared gradients for W
	GradSqWTilde [][]float64 // Accumulated squared gradients for WTilde
	GradSqB      []float64   // Accumulated squared gradients for B
	GradSqBTilde []float64   // Accumulated squared gradients for BTilde
}

// newParameters allocates all tables for the given shapes. Vectors and
// biases get small random values in ±0.5/vectorSize as in the reference
// implementation; accumulators start at the floor.
func newParameters(vocabSize, vectorSize int, rng *rand.Rand) *Parameters {
	p := &Parameters{
		W:            make([][]float64, vocabSize),
		WTilde:       make([][]float64, vocabSize),
		B:            make([]float64, vocabSize),
		BTilde:       make([]float64, vocabSize),
		GradSqW:      make([][]float64, vocabSize),
		GradSqWTilde: make([][]float64, vocabSize),
		GradSqB:      make([]float64, vocabSize),
		GradSqBTilde: make([]float64, vocabSize),
	}

	initRange := 0.5 / float64(vectorSize)
	for i := 0; i < vocabSize; i++ {
		p.W[i] = make([]float64, vectorSize)
		p.WTilde[i] = make([]float64, vectorSize)
		p.GradSqW[i] = make([]float64, vectorSize)
		p.GradSqWTilde[i] = make([]float64, vectorSize)

		for d := 0; d < vectorSize; d++ {
			p.W[i][d] = (rng.Float64() - 0.5) * 2 * initRange
			p.WTilde[i][d] = (rng.Float64() - 0.5) * 2 * initRange
			p.GradSqW[i][d] = gradSqFloor
			p.GradSqWTilde[i][d] = gradSqFloor
		}

		p.B[i] = (rng.Float64() - 0.5) * 2 * initRange
		p.BTilde[i] = (rng.Float64() - 0.5) * 2 * initRange
		p.GradSqB[i] = gradSqFloor
		p.GradSqBTilde[i] = gradSqFloor
	}

	return p
}

// shapeValid reports whether the tables match (vocabSize, vectorSize).
func (p *Parameters) shapeValid(vocabSize, vectorSize int) bool {
	if p == nil {
		return false
	}
	if len(p.W) != vocabSize || len(p.WTilde) != vocabSize ||
		len(p.B) != vocabSize || len(p.BTilde) != vocabSize {
		return false
	}
	for i := range p.W {
		if len(p.W[i]) != vectorSize || len(p.WTilde[i]) != vectorSize {
			return false
		}
	}
	return true
}

// ensureOptimizerState allocates missing or mismatched accumulator tables
// at the floor. Needed when a model restored from disk carries vectors
// but no optimizer state.
func (p *Parameters) ensureOptimizerState(vocabSize, vectorSize int) {
	if len(p.GradSqW) != vocabSize {
		p.GradSqW = filledMatrix(vocabSize, vectorSize, gradSqFloor)
	}
	if len(p.GradSqWTilde) != vocabSize {
		p.GradSqWTilde = filledMatrix(vocabSize, vectorSize, gradSqFloor)
	}
	if len(p.GradSqB) != vocabSize {
		p.GradSqB = filledVector(vocabSize, gradSqFloor)
	}
	if len(p.GradSqBTilde) != vocabSize {
		p.GradSqBTilde = filledVector(vocabSize, gradSqFloor)
	}
}

func filledMatrix(rows, cols int, v float64) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = filledVector(cols, v)
	}
	return m
}

func filledVector(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
