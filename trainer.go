package glove

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/viterin/vek"
)

// ExportPolicy selects how the two embedding tables are combined when
// vectors are exported.
type ExportPolicy int

const (
	// ExportCenter exports the word vectors W alone.
	ExportCenter ExportPolicy = iota
	// ExportSum exports W + W̃, the paper's recommendation.
	ExportSum
	// ExportAverage exports (W + W̃) / 2.
	ExportAverage
)

// Trainer fits the embeddings by sweeping sparse co-occurrence triplets
// with HOGWILD-style parallel AdaGrad: every worker reads and writes the
// shared Parameters tables with no locks, no atomics, and no CAS.
// Overlapping writes between workers are tolerated rather than prevented;
// the sparsity of the index space keeps collisions rare and their effect
// bounded. The one cross-worker guarantee is that the cost reduction is a
// plain sum, so the order in which workers finish never changes the
// returned cost.
type Trainer struct {
	cfg    Config
	params *Parameters

	// fitting tracks the Idle/Fitting state so misuse while a chunk is
	// in flight surfaces as an error instead of a torn read.
	fitting atomic.Bool
}

// NewTrainer validates the configuration and allocates freshly
// initialized parameters.
func NewTrainer(cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Trainer{
		cfg:    cfg,
		params: newParameters(cfg.VocabSize, cfg.VectorSize, rng),
	}, nil
}

// RestoreTrainer builds a trainer around previously trained parameters,
// e.g. a model state loaded from disk. Missing optimizer accumulators are
// allocated at the floor so training can resume.
func RestoreTrainer(cfg Config, params *Parameters) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !params.shapeValid(cfg.VocabSize, cfg.VectorSize) {
		return nil, errors.Errorf("trainer: parameter shapes do not match vocab_size=%d vector_size=%d",
			cfg.VocabSize, cfg.VectorSize)
	}
	params.ensureOptimizerState(cfg.VocabSize, cfg.VectorSize)
	return &Trainer{cfg: cfg, params: params}, nil
}

// Config returns the trainer's construction-time configuration.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Params exposes the parameter tables for persistence and evaluation.
// Treat them as read-only while no FitChunk call is in flight; during one
// they are being updated racily.
func (t *Trainer) Params() *Parameters {
	return t.params
}

// validateChunk checks the whole chunk before any worker starts, so a
// rejected call leaves the parameters untouched. Once a sweep is
// dispatched nothing is rolled back, which is why validation cannot be
// deferred into the workers.
func (t *Trainer) validateChunk(rows, cols []int, values []float64) error {
	if len(rows) != len(cols) || len(rows) != len(values) {
		return errors.Errorf("trainer: triplet length mismatch: rows=%d cols=%d values=%d",
			len(rows), len(cols), len(values))
	}
	for k := range rows {
		if rows[k] < 0 || rows[k] >= t.cfg.VocabSize {
			return errors.Errorf("trainer: row index %d at triplet %d outside vocab of %d",
				rows[k], k, t.cfg.VocabSize)
		}
		if cols[k] < 0 || cols[k] >= t.cfg.VocabSize {
			return errors.Errorf("trainer: col index %d at triplet %d outside vocab of %d",
				cols[k], k, t.cfg.VocabSize)
		}
		if values[k] <= 0 || math.IsInf(values[k], 0) || math.IsNaN(values[k]) {
			return errors.Errorf("trainer: co-occurrence value %g at triplet %d must be positive and finite",
				values[k], k)
		}
	}
	return nil
}

// FitChunk sweeps the given triplets once, applying AdaGrad updates in
// place, and returns the summed weighted squared error of the sweep. The
// triplet slices are read-only for the duration of the call and are
// partitioned into numWorkers contiguous ranges, one goroutine each. The
// call blocks until every worker has joined; the trainer keeps no running
// cost across calls, so epoch totals belong to the caller.
func (t *Trainer) FitChunk(rows, cols []int, values []float64, numWorkers int) (float64, error) {
	if err := t.validateChunk(rows, cols, values); err != nil {
		return 0, err
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if !t.fitting.CompareAndSwap(false, true) {
		return 0, errors.New("trainer: FitChunk called while another chunk is fitting")
	}
	defer t.fitting.Store(false)

	n := len(values)
	block := (n + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	costCh := make(chan float64, numWorkers)

	for w := 0; w < numWorkers; w++ {
		begin := w * block
		if begin >= n {
			break
		}
		end := begin + block
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(begin, end int) {
			defer wg.Done()
			costCh <- t.fitRange(rows, cols, values, begin, end)
		}(begin, end)
	}

	wg.Wait()
	close(costCh)

	totalCost := 0.0
	for c := range costCh {
		totalCost += c
	}
	return totalCost, nil
}

// fitRange is one worker's sweep over triplets [begin, end). For each
// triplet it computes the prediction error, accumulates the unclipped
// weighted squared error into the returned cost, clips the gradient
// factor to ±MaxCost, and applies the AdaGrad step to both vectors and
// both biases directly in the shared tables. The asymmetry is deliberate:
// clipping bounds the update, not the reported cost.
func (t *Trainer) fitRange(rows, cols []int, values []float64, begin, end int) float64 {
	p := t.params
	lr := t.cfg.LearningRate
	maxCost := t.cfg.MaxCost
	cost := 0.0

	for idx := begin; idx < end; idx++ {
		i := rows[idx]
		j := cols[idx]
		x := values[idx]

		wi := p.W[i]
		wj := p.WTilde[j]

		pred := vek.Dot(wi, wj) + p.B[i] + p.BTilde[j] - math.Log(x)
		weight := t.cfg.weight(x)

		cost += weight * pred * pred

		g := weight * pred
		if g > maxCost {
			g = maxCost
		} else if g < -maxCost {
			g = -maxCost
		}

		gsi := p.GradSqW[i]
		gsj := p.GradSqWTilde[j]
		for d := range wi {
			gradW := g * wj[d]
			gradWT := g * wi[d]

			gsi[d] += gradW * gradW
			wi[d] -= lr * gradW / math.Sqrt(gsi[d])

			gsj[d] += gradWT * gradWT
			wj[d] -= lr * gradWT / math.Sqrt(gsj[d])
		}

		p.GradSqB[i] += g * g
		p.B[i] -= lr * g / math.Sqrt(p.GradSqB[i])

		p.GradSqBTilde[j] += g * g
		p.BTilde[j] -= lr * g / math.Sqrt(p.GradSqBTilde[j])
	}

	return cost
}

// ExportVectors returns a copy of the trained embeddings combined under
// the given policy. It takes no lock: calling it while a FitChunk is in
// flight is a usage error because the tables are mid-update.
func (t *Trainer) ExportVectors(policy ExportPolicy) ([][]float64, error) {
	if t.fitting.Load() {
		return nil, errors.New("trainer: ExportVectors while fitting")
	}

	out := make([][]float64, t.cfg.VocabSize)
	for i := range out {
		switch policy {
		case ExportCenter:
			out[i] = append([]float64(nil), t.params.W[i]...)
		case ExportSum:
			out[i] = vek.Add(t.params.W[i], t.params.WTilde[i])
		case ExportAverage:
			out[i] = vek.Add(t.params.W[i], t.params.WTilde[i])
			vek.DivNumber_Inplace(out[i], 2)
		default:
			return nil, errors.Errorf("trainer: unknown export policy %d", policy)
		}
	}
	return out, nil
}
