package glove

import (
	"math"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default hyperparameters from the paper
const (
	DefaultXMax         = 100.0 // Cutoff parameter for the weighting function
	DefaultAlpha        = 0.75  // Exponent for the weighting function (3/4)
	DefaultLearningRate = 0.05  // Initial AdaGrad learning rate
	DefaultMaxCost      = 10.0  // Gradient clipping bound
	DefaultMinCount     = 5     // Minimum word frequency to include in the vocabulary
	DefaultMaxVocabSize = 400000
)

// Config carries everything the trainer needs at construction time.
// All knobs are required; Validate rejects degenerate values before any
// parameter table is allocated.
type Config struct {
	VocabSize    int     `yaml:"vocab_size"`
	VectorSize   int     `yaml:"vector_size"`
	XMax         float64 `yaml:"x_max"`
	LearningRate float64 `yaml:"learning_rate"`
	MaxCost      float64 `yaml:"max_cost"`
	Alpha        float64 `yaml:"alpha"`

	// Seed fixes the parameter initialization; 0 means seed from the
	// clock, as for normal training runs.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a Config with the paper's hyperparameters for the
// given vocabulary and embedding sizes.
func DefaultConfig(vocabSize, vectorSize int) Config {
	return Config{
		VocabSize:    vocabSize,
		VectorSize:   vectorSize,
		XMax:         DefaultXMax,
		LearningRate: DefaultLearningRate,
		MaxCost:      DefaultMaxCost,
		Alpha:        DefaultAlpha,
	}
}

// Validate reports the first contract violation in the configuration.
func (c Config) Validate() error {
	switch {
	case c.VocabSize <= 0:
		return errors.Errorf("config: vocab_size must be positive, got %d", c.VocabSize)
	case c.VocabSize > maxPairID+1:
		return errors.Errorf("config: vocab_size %d exceeds the index range", c.VocabSize)
	case c.VectorSize <= 0:
		return errors.Errorf("config: vector_size must be positive, got %d", c.VectorSize)
	case c.XMax <= 0:
		return errors.Errorf("config: x_max must be positive, got %g", c.XMax)
	case c.LearningRate <= 0:
		return errors.Errorf("config: learning_rate must be positive, got %g", c.LearningRate)
	case c.MaxCost <= 0:
		return errors.Errorf("config: max_cost must be positive, got %g", c.MaxCost)
	case c.Alpha <= 0 || c.Alpha > 1:
		return errors.Errorf("config: alpha must be in (0, 1], got %g", c.Alpha)
	}
	return nil
}

// weight is the down-weighting function f(x) from equation 9 of the
// paper: (x/x_max)^alpha below the cutoff, 1 at and above it. Monotonic
// non-decreasing for x < x_max.
func (c Config) weight(x float64) float64 {
	if x < c.XMax {
		return math.Pow(x/c.XMax, c.Alpha)
	}
	return 1.0
}

// TrainingConfig is the full configuration of a training run, loadable
// from a YAML file. Flag values set by the CLI override file values,
// which override the built-in defaults.
type TrainingConfig struct {
	Corpus     string `yaml:"corpus"`
	Output     string `yaml:"output"`
	Window     int    `yaml:"window"`
	Iterations int    `yaml:"iterations"`
	Threads    int    `yaml:"threads"`
	MinCount   int    `yaml:"min_count"`
	MaxVocab   int    `yaml:"max_vocab"`

	Model Config `yaml:"model"`
}

// DefaultTrainingConfig returns the defaults a run starts from before the
// config file and flags are applied.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Corpus:     "corpus.txt",
		Output:     "glove_vectors.txt",
		Window:     10,
		Iterations: 0, // 0 lets Train pick per the paper
		Threads:    runtime.NumCPU(),
		MinCount:   DefaultMinCount,
		MaxVocab:   DefaultMaxVocabSize,
		Model: Config{
			VectorSize:   300,
			XMax:         DefaultXMax,
			LearningRate: DefaultLearningRate,
			MaxCost:      DefaultMaxCost,
			Alpha:        DefaultAlpha,
		},
	}
}

// LoadTrainingConfig reads a YAML training configuration on top of the
// defaults. VocabSize is not part of the file: it is discovered from the
// corpus when the vocabulary is built.
func LoadTrainingConfig(path string) (TrainingConfig, error) {
	cfg := DefaultTrainingConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}
