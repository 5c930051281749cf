// Package glove fits GloVe word embeddings by factorizing a sparse
// symmetric co-occurrence matrix with lock-free parallel AdaGrad. It
// covers the full pipeline: vocabulary building, windowed co-occurrence
// counting, training, persistence, and similarity/analogy queries.
package glove

import (
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/viterin/vek"
)

// TrainingProgress contains information about the current training progress
type TrainingProgress struct {
	Iteration     int           // Current iteration (1-based)
	MaxIterations int           // Total number of iterations
	Cost          float64       // Cost of the completed iteration
	TimeElapsed   time.Duration // Time elapsed since training started
}

// ProgressCallback is a function type for receiving training progress updates
type ProgressCallback func(progress TrainingProgress)

// Model ties the trainer to a corpus: vocabulary, co-occurrence triplets,
// the epoch loop, and evaluation helpers.
type Model struct {
	Hyper        Config // VocabSize is filled in when the vocabulary is built
	MinCount     int    // Minimum word frequency to enter the vocabulary
	MaxVocabSize int

	Vocab     map[string]int // Mapping word -> index
	InvVocab  []string       // Mapping index -> word
	WordCount []int          // Word frequencies

	// Co-occurrence triplets in canonical orientation (Rows[k] <= Cols[k])
	Rows   []int
	Cols   []int
	Values []float64

	Logger *logrus.Logger

	trainer *Trainer
}

// NewModel creates a model with the paper's default hyperparameters.
func NewModel() *Model {
	return &Model{
		Hyper: Config{
			XMax:         DefaultXMax,
			LearningRate: DefaultLearningRate,
			MaxCost:      DefaultMaxCost,
			Alpha:        DefaultAlpha,
		},
		MinCount:     DefaultMinCount,
		MaxVocabSize: DefaultMaxVocabSize,
		Vocab:        make(map[string]int),
		Logger:       logrus.StandardLogger(),
	}
}

// VocabSize returns the number of words in the vocabulary.
func (m *Model) VocabSize() int {
	return len(m.InvVocab)
}

// VectorSize returns the embedding dimensionality, 0 before initialization.
func (m *Model) VectorSize() int {
	return m.Hyper.VectorSize
}

// Trainer returns the underlying trainer, nil before InitializeParameters.
func (m *Model) Trainer() *Trainer {
	return m.trainer
}

// BuildVocab tokenizes the corpus file and keeps words occurring at least
// MinCount times, most frequent first, capped at MaxVocabSize.
func (m *Model) BuildVocab(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "build vocab")
	}
	defer f.Close()

	wordFreq := StanfordTokenize(f, m.MinCount)
	if len(wordFreq) > m.MaxVocabSize {
		wordFreq = wordFreq[:m.MaxVocabSize]
	}

	m.InvVocab = make([]string, len(wordFreq))
	m.WordCount = make([]int, len(wordFreq))
	m.Vocab = make(map[string]int, len(wordFreq))

	for i, wf := range wordFreq {
		m.Vocab[wf.Word] = i
		m.InvVocab[i] = wf.Word
		m.WordCount[i] = wf.Freq
	}

	m.Logger.WithField("vocab_size", len(wordFreq)).Debug("vocabulary built")
	return nil
}

// BuildCooccurrence scans the corpus with a sliding window and fills the
// co-occurrence triplets through a symmetric sparse accumulator. Pairs at
// distance d contribute 1/d, as in section 4.2 of the paper. Words not in
// the vocabulary are skipped without consuming a window slot.
func (m *Model) BuildCooccurrence(filename string, windowSize int) error {
	if windowSize <= 0 {
		return errors.Errorf("build cooccurrence: window size must be positive, got %d", windowSize)
	}
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "build cooccurrence")
	}
	defer f.Close()

	acc := NewAccumulator()

	err = ScanLines(f, func(line string) error {
		words := TokenizeLine(line)
		indices := make([]int, 0, len(words))
		for _, w := range words {
			if idx, ok := m.Vocab[w]; ok {
				indices = append(indices, idx)
			}
		}

		for i := 0; i < len(indices); i++ {
			left := i - windowSize
			if left < 0 {
				left = 0
			}
			for j := left; j < i; j++ {
				// The accumulator canonicalizes the pair, so one
				// increment covers both orientations.
				w := 1.0 / float64(i-j)
				if err := acc.Increment(indices[i], indices[j], w); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "build cooccurrence")
	}

	m.Rows, m.Cols, m.Values = acc.Finalize()
	m.Logger.WithField("nonzeros", len(m.Values)).Debug("co-occurrence matrix built")
	return nil
}

// InitializeParameters allocates fresh model parameters for the given
// embedding dimensionality. The vocabulary must be built first.
func (m *Model) InitializeParameters(vectorSize int) error {
	m.Hyper.VocabSize = m.VocabSize()
	m.Hyper.VectorSize = vectorSize

	trainer, err := NewTrainer(m.Hyper)
	if err != nil {
		return err
	}
	m.trainer = trainer
	return nil
}

// Train runs maxIter epochs over the co-occurrence triplets.
func (m *Model) Train(maxIter, numWorkers int) error {
	return m.TrainWithCallback(maxIter, numWorkers, nil)
}

// TrainWithCallback runs the epoch loop: shuffle the triplets, sweep them
// once through the trainer, report the epoch cost. maxIter of 0 picks the
// paper's default. The per-epoch cost total lives here and is reset every
// epoch; the trainer returns each chunk's cost explicitly.
func (m *Model) TrainWithCallback(maxIter, numWorkers int, callback ProgressCallback) error {
	if m.trainer == nil {
		return errors.New("train: parameters not initialized")
	}
	if maxIter == 0 {
		if m.Hyper.VectorSize < 300 {
			maxIter = 50
		} else {
			maxIter = 100
		}
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	seed := m.Hyper.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	startTime := time.Now()
	for iter := 0; iter < maxIter; iter++ {
		// Shuffle the triplets in tandem; their order is meaningless to
		// the trainer but a fresh visiting order helps convergence.
		rng.Shuffle(len(m.Values), func(a, b int) {
			m.Rows[a], m.Rows[b] = m.Rows[b], m.Rows[a]
			m.Cols[a], m.Cols[b] = m.Cols[b], m.Cols[a]
			m.Values[a], m.Values[b] = m.Values[b], m.Values[a]
		})

		cost, err := m.trainer.FitChunk(m.Rows, m.Cols, m.Values, numWorkers)
		if err != nil {
			return errors.Wrapf(err, "train: iteration %d", iter+1)
		}

		m.Logger.WithFields(logrus.Fields{
			"iteration": iter + 1,
			"cost":      cost,
			"elapsed":   time.Since(startTime).Truncate(time.Millisecond),
		}).Debug("epoch finished")

		if callback != nil {
			callback(TrainingProgress{
				Iteration:     iter + 1,
				MaxIterations: maxIter,
				Cost:          cost,
				TimeElapsed:   time.Since(startTime),
			})
		}
	}
	return nil
}

// WordVector returns the final vector for a word (W + W̃, the paper's
// recommendation).
func (m *Model) WordVector(word string) ([]float64, bool) {
	idx, ok := m.Vocab[word]
	if !ok || m.trainer == nil {
		return nil, false
	}
	p := m.trainer.Params()
	return vek.Add(p.W[idx], p.WTilde[idx]), true
}

// CosineSimilarity computes cosine similarity between two vectors,
// returning 0 for mismatched lengths or zero vectors.
func CosineSimilarity(v1, v2 []float64) float64 {
	if len(v1) != len(v2) || len(v1) == 0 {
		return 0
	}
	if vek.Norm(v1) == 0 || vek.Norm(v2) == 0 {
		return 0
	}
	return vek.CosineSimilarity(v1, v2)
}

// WordSim pairs a word with its similarity to some query.
type WordSim struct {
	Word string
	Sim  float64
}

// MostSimilar returns the topN vocabulary words closest to the given
// vector by cosine similarity, excluding the listed words.
func (m *Model) MostSimilar(target []float64, topN int, exclude ...string) []WordSim {
	skip := make(map[string]bool, len(exclude))
	for _, w := range exclude {
		skip[w] = true
	}

	similarities := make([]WordSim, 0, len(m.Vocab))
	for word := range m.Vocab {
		if skip[word] {
			continue
		}
		vec, ok := m.WordVector(word)
		if !ok {
			continue
		}
		similarities = append(similarities, WordSim{word, CosineSimilarity(target, vec)})
	}

	sort.Slice(similarities, func(i, j int) bool {
		return similarities[i].Sim > similarities[j].Sim
	})

	if topN < len(similarities) {
		similarities = similarities[:topN]
	}
	return similarities
}

// WordAnalogy solves analogy tasks: a:b :: c:?
func (m *Model) WordAnalogy(a, b, c string, topN int) []string {
	vecA, okA := m.WordVector(a)
	vecB, okB := m.WordVector(b)
	vecC, okC := m.WordVector(c)
	if !okA || !okB || !okC {
		return nil
	}

	// b - a + c
	target := vek.Add(vek.Sub(vecB, vecA), vecC)

	sims := m.MostSimilar(target, topN, a, b, c)
	result := make([]string, 0, len(sims))
	for _, s := range sims {
		result = append(result, s.Word)
	}
	return result
}

// ParseAnalogy splits an "a:b::c" query into its three words.
func ParseAnalogy(s string) (a, b, c string, err error) {
	parts := strings.Split(s, "::")
	if len(parts) != 2 {
		return "", "", "", errors.Errorf("invalid analogy %q, expected format 'a:b::c'", s)
	}
	left := strings.Split(parts[0], ":")
	if len(left) != 2 {
		return "", "", "", errors.Errorf("invalid analogy %q, expected format 'a:b::c'", s)
	}
	return left[0], left[1], parts[1], nil
}
