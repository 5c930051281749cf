package glove

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureModel(t *testing.T) *Model {
	t.Helper()
	model := NewModel()
	model.Vocab = map[string]int{"hello": 0, "world": 1}
	model.InvVocab = []string{"hello", "world"}
	model.WordCount = []int{10, 20}
	model.Hyper = testConfig(2, 3)

	trainer, err := RestoreTrainer(model.Hyper, &Parameters{
		W:      [][]float64{{1.1, 2.2, 3.3}, {4.4, 5.5, 6.6}},
		WTilde: [][]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}},
		B:      []float64{0.1, 0.2},
		BTilde: []float64{0.01, 0.02},
	})
	require.NoError(t, err)
	model.trainer = trainer
	return model
}

func TestSaveLoadVectorsModes(t *testing.T) {
	model := fixtureModel(t)

	modes := map[string]SaveMode{
		"all_params":       SaveAllParams,
		"word_only":        SaveWordOnly,
		"word_and_context": SaveWordAndContext,
		"separate":         SaveSeparateVectors,
	}

	for name, mode := range modes {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name+".txt")
			require.NoError(t, model.SaveVectorsMode(path, mode, OutputText, false))

			loaded := NewModel()
			require.NoError(t, loaded.LoadVectors(path))

			assert.Equal(t, model.VocabSize(), loaded.VocabSize())
			for word, idx := range model.Vocab {
				assert.Equal(t, idx, loaded.Vocab[word])
			}
		})
	}
}

func TestSaveLoadVectorsRoundTrip(t *testing.T) {
	model := fixtureModel(t)
	path := filepath.Join(t.TempDir(), "vectors.txt")
	require.NoError(t, model.SaveVectors(path))

	loaded := NewModel()
	require.NoError(t, loaded.LoadVectors(path))

	// Default mode stores W + W̃; the loader splits it equally, so the
	// combined vector round-trips.
	want, _ := model.WordVector("hello")
	got, ok := loaded.WordVector("hello")
	require.True(t, ok)
	assert.InDeltaSlice(t, want, got, 1e-5)
}

func TestSaveLoadVectorsWithHeader(t *testing.T) {
	model := fixtureModel(t)
	path := filepath.Join(t.TempDir(), "vectors.txt")
	require.NoError(t, model.SaveVectorsMode(path, SaveWordAndContext, OutputText, true))

	loaded := NewModel()
	require.NoError(t, loaded.LoadVectors(path))
	assert.Equal(t, 2, loaded.VocabSize())
	assert.Equal(t, 3, loaded.VectorSize())
}

func TestSaveBinaryVectors(t *testing.T) {
	model := fixtureModel(t)
	base := filepath.Join(t.TempDir(), "vectors.txt")
	require.NoError(t, model.SaveVectorsMode(base, SaveWordOnly, OutputBinary, false))

	data, err := os.ReadFile(base + ".bin")
	require.NoError(t, err)

	// vocab_size * vector_size little-endian float64 values
	require.Len(t, data, 2*3*8)
	first := math.Float64frombits(binary.LittleEndian.Uint64(data[:8]))
	assert.InDelta(t, 1.1, first, 1e-12)
}

func TestLoadVectorsErrors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	malformed := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(malformed, []byte("word 1.0 nope 3.0\n"), 0o644))

	for _, path := range []string{empty, malformed, filepath.Join(dir, "missing.txt")} {
		assert.Error(t, NewModel().LoadVectors(path))
	}
}

func TestSaveLoadModelState(t *testing.T) {
	tests := []struct {
		name           string
		includeGrads   bool
		includeCooccur bool
	}{
		{"basic", false, false},
		{"with gradients", true, false},
		{"with cooccurrence", false, true},
		{"complete", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := fixtureModel(t)
			model.Trainer().Params().GradSqB[0] = 7.5 // distinguishable from the floor
			if tt.includeCooccur {
				model.Rows = []int{0, 1}
				model.Cols = []int{1, 1}
				model.Values = []float64{5.0, 3.0}
			}

			path := filepath.Join(t.TempDir(), "state.gob")
			require.NoError(t, model.SaveModelState(path, tt.includeGrads, tt.includeCooccur))

			loaded := NewModel()
			require.NoError(t, loaded.LoadModelState(path))

			assert.Equal(t, model.VocabSize(), loaded.VocabSize())
			assert.Equal(t, model.Hyper, loaded.Hyper)
			for word, idx := range model.Vocab {
				assert.Equal(t, idx, loaded.Vocab[word])
			}
			assert.InDeltaSlice(t, model.Trainer().Params().W[0], loaded.Trainer().Params().W[0], 1e-12)

			if tt.includeGrads {
				assert.Equal(t, 7.5, loaded.Trainer().Params().GradSqB[0])
			} else {
				// Accumulators restart at the floor so training can resume
				assert.Equal(t, gradSqFloor, loaded.Trainer().Params().GradSqB[0])
			}

			if tt.includeCooccur {
				assert.Equal(t, model.Values, loaded.Values)
			} else {
				assert.Nil(t, loaded.Values)
			}

			// The restored model must be trainable
			if tt.includeCooccur {
				require.NoError(t, loaded.Train(1, 2))
			}
		})
	}
}

func TestSaveStateWithoutParameters(t *testing.T) {
	model := NewModel()
	assert.Error(t, model.SaveModelState(filepath.Join(t.TempDir(), "state.gob"), true, true))
}
