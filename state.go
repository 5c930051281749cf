package glove

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ModelState is the gob-serializable snapshot of a model, sufficient to
// resume training when gradients and triplets are included.
type ModelState struct {
	Hyper        Config
	MinCount     int
	MaxVocabSize int

	Vocab     map[string]int
	InvVocab  []string
	WordCount []int

	Params *Parameters

	// AdaGrad accumulators travel inside Params; this flag records
	// whether they were stripped to shrink the file.
	IncludeGradients bool

	// Co-occurrence triplets, optional: they can be very large.
	IncludeCooccur bool
	Rows           []int
	Cols           []int
	Values         []float64
}

// SaveMode defines the vector layouts compatible with Stanford GloVe
type SaveMode int

const (
	// SaveAllParams saves W + W̃ plus the summed biases
	SaveAllParams SaveMode = iota
	// SaveWordOnly saves word vectors only (W)
	SaveWordOnly
	// SaveWordAndContext saves W + W̃, the default Stanford format
	SaveWordAndContext
	// SaveSeparateVectors saves W concatenated with W̃
	SaveSeparateVectors
)

// OutputFormat defines the output format for saving vectors
type OutputFormat int

const (
	OutputText OutputFormat = iota
	OutputBinary
	OutputBoth
)

// SaveModelState writes the complete model state with gob.
// includeGrads keeps the AdaGrad accumulators (needed to resume training),
// includeCooccur keeps the co-occurrence triplets (can be very large).
func (m *Model) SaveModelState(filename string, includeGrads, includeCooccur bool) error {
	if m.trainer == nil {
		return errors.New("save state: parameters not initialized")
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "save state")
	}
	defer file.Close()

	p := m.trainer.Params()
	saved := *p
	if !includeGrads {
		saved.GradSqW = nil
		saved.GradSqWTilde = nil
		saved.GradSqB = nil
		saved.GradSqBTilde = nil
	}

	state := ModelState{
		Hyper:            m.Hyper,
		MinCount:         m.MinCount,
		MaxVocabSize:     m.MaxVocabSize,
		Vocab:            m.Vocab,
		InvVocab:         m.InvVocab,
		WordCount:        m.WordCount,
		Params:           &saved,
		IncludeGradients: includeGrads,
		IncludeCooccur:   includeCooccur,
	}
	if includeCooccur {
		state.Rows = m.Rows
		state.Cols = m.Cols
		state.Values = m.Values
	}

	if err := gob.NewEncoder(file).Encode(state); err != nil {
		return errors.Wrap(err, "save state: encode")
	}
	return nil
}

// LoadModelState restores a model saved with SaveModelState. Stripped
// AdaGrad accumulators are re-initialized at the floor so training can
// continue.
func (m *Model) LoadModelState(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "load state")
	}
	defer file.Close()

	var state ModelState
	if err := gob.NewDecoder(file).Decode(&state); err != nil {
		return errors.Wrap(err, "load state: decode")
	}

	m.Hyper = state.Hyper
	m.MinCount = state.MinCount
	m.MaxVocabSize = state.MaxVocabSize
	m.Vocab = state.Vocab
	m.InvVocab = state.InvVocab
	m.WordCount = state.WordCount

	if state.IncludeCooccur {
		m.Rows, m.Cols, m.Values = state.Rows, state.Cols, state.Values
	} else {
		m.Rows, m.Cols, m.Values = nil, nil, nil
	}

	trainer, err := RestoreTrainer(m.Hyper, state.Params)
	if err != nil {
		return errors.Wrap(err, "load state")
	}
	m.trainer = trainer
	return nil
}

// SaveVectors saves vectors in the default layout: word+context, text
// format, no header.
func (m *Model) SaveVectors(filename string) error {
	return m.SaveVectorsMode(filename, SaveWordAndContext, OutputText, false)
}

// SaveVectorsMode saves vectors in the requested layout and format.
// Binary output goes to filename.bin, Stanford GloVe compatible.
func (m *Model) SaveVectorsMode(filename string, mode SaveMode, format OutputFormat, header bool) error {
	if m.trainer == nil {
		return errors.New("save vectors: parameters not initialized")
	}
	if format == OutputBinary || format == OutputBoth {
		if err := m.saveBinaryVectors(filename+".bin", mode); err != nil {
			return err
		}
	}
	if format == OutputText || format == OutputBoth {
		return m.saveTextVectors(filename, mode, header)
	}
	return nil
}

func (m *Model) saveTextVectors(filename string, mode SaveMode, header bool) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "save vectors")
	}
	defer file.Close()

	p := m.trainer.Params()
	D := m.Hyper.VectorSize
	writer := bufio.NewWriter(file)

	if header {
		width := D
		if mode == SaveSeparateVectors {
			width = D * 2
		}
		fmt.Fprintf(writer, "%d %d\n", m.VocabSize(), width)
	}

	for i := 0; i < m.VocabSize(); i++ {
		fmt.Fprintf(writer, "%s", m.InvVocab[i])

		switch mode {
		case SaveAllParams:
			for d := 0; d < D; d++ {
				fmt.Fprintf(writer, " %.6f", p.W[i][d]+p.WTilde[i][d])
			}
			fmt.Fprintf(writer, " %.6f", p.B[i]+p.BTilde[i])

		case SaveWordOnly:
			for d := 0; d < D; d++ {
				fmt.Fprintf(writer, " %.6f", p.W[i][d])
			}

		case SaveWordAndContext:
			for d := 0; d < D; d++ {
				fmt.Fprintf(writer, " %.6f", p.W[i][d]+p.WTilde[i][d])
			}

		case SaveSeparateVectors:
			for d := 0; d < D; d++ {
				fmt.Fprintf(writer, " %.6f", p.W[i][d])
			}
			for d := 0; d < D; d++ {
				fmt.Fprintf(writer, " %.6f", p.WTilde[i][d])
			}
		}

		fmt.Fprintln(writer)
	}

	return errors.Wrap(writer.Flush(), "save vectors")
}

// saveBinaryVectors writes little-endian float64 values in the layout the
// Stanford tooling expects for each mode.
func (m *Model) saveBinaryVectors(filename string, mode SaveMode) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "save vectors")
	}
	defer file.Close()

	p := m.trainer.Params()
	w := bufio.NewWriter(file)

	write := func(vals ...float64) error {
		for _, v := range vals {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return errors.Wrap(err, "save vectors: write")
			}
		}
		return nil
	}

	switch mode {
	case SaveAllParams:
		// W[i], B[i], W̃[i], B̃[i] per word
		for i := 0; i < m.VocabSize(); i++ {
			if err := write(p.W[i]...); err != nil {
				return err
			}
			if err := write(p.B[i]); err != nil {
				return err
			}
			if err := write(p.WTilde[i]...); err != nil {
				return err
			}
			if err := write(p.BTilde[i]); err != nil {
				return err
			}
		}

	case SaveWordOnly:
		for i := 0; i < m.VocabSize(); i++ {
			if err := write(p.W[i]...); err != nil {
				return err
			}
		}

	case SaveWordAndContext:
		// W[i] then W̃[i] per word
		for i := 0; i < m.VocabSize(); i++ {
			if err := write(p.W[i]...); err != nil {
				return err
			}
			if err := write(p.WTilde[i]...); err != nil {
				return err
			}
		}

	case SaveSeparateVectors:
		// All word vectors, then all context vectors
		for i := 0; i < m.VocabSize(); i++ {
			if err := write(p.W[i]...); err != nil {
				return err
			}
		}
		for i := 0; i < m.VocabSize(); i++ {
			if err := write(p.WTilde[i]...); err != nil {
				return err
			}
		}

	default:
		return errors.Errorf("save vectors: invalid mode %v for binary format", mode)
	}

	return errors.Wrap(w.Flush(), "save vectors")
}

// LoadVectors loads text-format vectors, auto-detecting the header and
// the save mode from the component count per line. Biases are zeroed and
// optimizer state starts at the floor, so a loaded model can keep
// training.
func (m *Model) LoadVectors(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "load vectors")
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "load vectors")
	}
	if len(lines) == 0 {
		return errors.New("load vectors: empty file")
	}

	vocabSize, vectorSize, headerSkip, err := detectVectorLayout(lines)
	if err != nil {
		return errors.Wrap(err, "load vectors")
	}

	m.Vocab = make(map[string]int, vocabSize)
	m.InvVocab = make([]string, vocabSize)
	params := &Parameters{
		W:      make([][]float64, vocabSize),
		WTilde: make([][]float64, vocabSize),
		B:      make([]float64, vocabSize),
		BTilde: make([]float64, vocabSize),
	}

	for i := headerSkip; i < len(lines); i++ {
		lineIdx := i - headerSkip
		word, vals, err := parseVectorLine(lines[i], vectorSize)
		if err != nil {
			return errors.Wrapf(err, "load vectors: line %d", i+1)
		}

		m.Vocab[word] = lineIdx
		m.InvVocab[lineIdx] = word
		params.W[lineIdx] = make([]float64, vectorSize)
		params.WTilde[lineIdx] = make([]float64, vectorSize)

		switch len(vals) {
		case vectorSize * 2:
			// Separate W and W̃
			copy(params.W[lineIdx], vals[:vectorSize])
			copy(params.WTilde[lineIdx], vals[vectorSize:])
		default:
			// Combined (possibly with a trailing bias): split equally
			for d := 0; d < vectorSize; d++ {
				params.W[lineIdx][d] = vals[d] / 2
				params.WTilde[lineIdx][d] = vals[d] / 2
			}
		}
	}

	// Word counts are unknown for externally trained vectors
	m.WordCount = make([]int, vocabSize)
	for i := range m.WordCount {
		m.WordCount[i] = 1
	}

	m.Hyper.VocabSize = vocabSize
	m.Hyper.VectorSize = vectorSize
	if m.Hyper.XMax == 0 {
		m.Hyper = DefaultConfig(vocabSize, vectorSize)
	}

	trainer, err := RestoreTrainer(m.Hyper, params)
	if err != nil {
		return errors.Wrap(err, "load vectors")
	}
	m.trainer = trainer
	return nil
}

// detectVectorLayout sniffs an optional "vocab_size vector_size" header
// and otherwise infers the shape from the first data line.
func detectVectorLayout(lines []string) (vocabSize, vectorSize, headerSkip int, err error) {
	if parts := strings.Fields(lines[0]); len(parts) == 2 {
		v, err1 := strconv.Atoi(parts[0])
		d, err2 := strconv.Atoi(parts[1])
		if err1 == nil && err2 == nil && v > 0 && d > 0 && v == len(lines)-1 {
			return v, d, 1, nil
		}
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 2 {
		return 0, 0, 0, errors.New("line should contain a word and vector components")
	}
	return len(lines), len(fields) - 1, 0, nil
}

// parseVectorLine splits "word v1 v2 ..." accepting the plain, doubled
// (separate W/W̃) and bias-augmented component counts.
func parseVectorLine(line string, vectorSize int) (string, []float64, error) {
	spaceIdx := strings.Index(line, " ")
	if spaceIdx == -1 {
		return "", nil, errors.New("expected word and vector components separated by space")
	}
	word := line[:spaceIdx]
	parts := strings.Fields(line[spaceIdx+1:])

	switch len(parts) {
	case vectorSize, vectorSize + 1, vectorSize * 2:
	default:
		return "", nil, errors.Errorf("expected %d, %d or %d components, got %d",
			vectorSize, vectorSize+1, vectorSize*2, len(parts))
	}

	vals := make([]float64, len(parts))
	for k, s := range parts {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", nil, errors.Wrapf(err, "component %d of word %q", k, word)
		}
		vals[k] = v
	}
	return word, vals, nil
}
