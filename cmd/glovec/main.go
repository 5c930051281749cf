// Package main provides the glovec CLI: train, evaluate and tokenize
// subcommands around the glove package.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/covec/glove"
)

var version = "0.1.0"

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:     "glovec",
		Short:   "GloVe word embeddings: train, evaluate, tokenize",
		Version: version,
	}

	var logLevel string
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	}

	root.AddCommand(newTrainCmd(), newEvaluateCmd(), newTokenizeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseSaveMode(mode string) (glove.SaveMode, error) {
	switch strings.ToLower(mode) {
	case "all-params", "all":
		return glove.SaveAllParams, nil
	case "word-only", "word":
		return glove.SaveWordOnly, nil
	case "word-context", "context", "default":
		return glove.SaveWordAndContext, nil
	case "separate", "sep":
		return glove.SaveSeparateVectors, nil
	default:
		return 0, fmt.Errorf("invalid save mode %q (all-params, word-only, word-context, separate)", mode)
	}
}

func parseOutputFormat(format string) (glove.OutputFormat, error) {
	switch strings.ToLower(format) {
	case "text", "txt":
		return glove.OutputText, nil
	case "binary", "bin":
		return glove.OutputBinary, nil
	case "both":
		return glove.OutputBoth, nil
	default:
		return 0, fmt.Errorf("invalid output format %q (text, binary, both)", format)
	}
}

func newTrainCmd() *cobra.Command {
	cfg := glove.DefaultTrainingConfig()
	var (
		configFile   string
		seed         int64
		saveState    string
		saveInterval int
		loadState    string
		saveMode     string
		outputFormat string
		saveHeader   bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train GloVe embeddings on a text corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				fileCfg, err := glove.LoadTrainingConfig(configFile)
				if err != nil {
					return err
				}
				// Explicit flags win over the config file
				applyFileConfig(cmd, &cfg, fileCfg)
			}
			cfg.Model.Seed = seed

			mode, err := parseSaveMode(saveMode)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(outputFormat)
			if err != nil {
				return err
			}

			model := glove.NewModel()
			model.Logger = log
			model.Hyper = cfg.Model
			model.MinCount = cfg.MinCount
			model.MaxVocabSize = cfg.MaxVocab

			if loadState != "" {
				log.WithField("file", loadState).Info("loading model state")
				if err := model.LoadModelState(loadState); err != nil {
					return err
				}
				log.WithField("vocab_size", model.VocabSize()).Info("model state loaded")
			} else {
				log.WithFields(logrus.Fields{
					"corpus":      cfg.Corpus,
					"vector_size": cfg.Model.VectorSize,
					"window":      cfg.Window,
					"threads":     cfg.Threads,
				}).Info("training")

				log.Info("building vocabulary")
				if err := model.BuildVocab(cfg.Corpus); err != nil {
					return err
				}
				log.WithField("vocab_size", model.VocabSize()).Info("vocabulary built")

				log.Info("building co-occurrence matrix")
				if err := model.BuildCooccurrence(cfg.Corpus, cfg.Window); err != nil {
					return err
				}
				log.WithField("nonzeros", len(model.Values)).Info("co-occurrence matrix built")

				if err := model.InitializeParameters(cfg.Model.VectorSize); err != nil {
					return err
				}
			}

			callback := progressCallback(model, saveState, saveInterval)
			if err := model.TrainWithCallback(cfg.Iterations, cfg.Threads, callback); err != nil {
				return err
			}

			log.WithField("file", cfg.Output).Info("saving vectors")
			if err := model.SaveVectorsMode(cfg.Output, mode, format, saveHeader); err != nil {
				return err
			}

			if saveState != "" {
				log.WithField("file", saveState).Info("saving model state")
				if err := model.SaveModelState(saveState, true, true); err != nil {
					return err
				}
			}

			log.Info("training completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "YAML training configuration file")
	cmd.Flags().StringVar(&cfg.Corpus, "corpus", cfg.Corpus, "Path to the text corpus file")
	cmd.Flags().StringVar(&cfg.Output, "output", cfg.Output, "Output file for trained vectors")
	cmd.Flags().IntVar(&cfg.Model.VectorSize, "vector-size", cfg.Model.VectorSize, "Vector dimensionality")
	cmd.Flags().IntVar(&cfg.Window, "window-size", cfg.Window, "Context window size")
	cmd.Flags().IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "Training iterations (0 = paper default)")
	cmd.Flags().IntVar(&cfg.Threads, "threads", cfg.Threads, "Worker goroutines per training sweep")
	cmd.Flags().IntVar(&cfg.MinCount, "min-count", cfg.MinCount, "Minimum word frequency")
	cmd.Flags().IntVar(&cfg.MaxVocab, "max-vocab", cfg.MaxVocab, "Maximum vocabulary size")
	cmd.Flags().Float64Var(&cfg.Model.XMax, "x-max", cfg.Model.XMax, "Weighting function cutoff")
	cmd.Flags().Float64Var(&cfg.Model.LearningRate, "learning-rate", cfg.Model.LearningRate, "Initial AdaGrad learning rate")
	cmd.Flags().Float64Var(&cfg.Model.MaxCost, "max-cost", cfg.Model.MaxCost, "Gradient clipping bound")
	cmd.Flags().Float64Var(&cfg.Model.Alpha, "alpha", cfg.Model.Alpha, "Weighting function exponent")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for parameter init (0 = clock)")
	cmd.Flags().StringVar(&saveState, "save-state", "", "Save model state to gob file")
	cmd.Flags().IntVar(&saveInterval, "save-interval", 0, "Save state every N iterations (0 = only at end)")
	cmd.Flags().StringVar(&loadState, "load-state", "", "Load model state from gob file to continue training")
	cmd.Flags().StringVar(&saveMode, "save-mode", "word-context", "Vector save mode")
	cmd.Flags().StringVar(&outputFormat, "output-format", "text", "Output format: text, binary, both")
	cmd.Flags().BoolVar(&saveHeader, "save-header", false, "Include 'vocab_size vector_size' header")
	return cmd
}

// applyFileConfig fills cfg from the file for every field whose flag the
// user did not set explicitly.
func applyFileConfig(cmd *cobra.Command, cfg *glove.TrainingConfig, file glove.TrainingConfig) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if !set("corpus") {
		cfg.Corpus = file.Corpus
	}
	if !set("output") {
		cfg.Output = file.Output
	}
	if !set("vector-size") {
		cfg.Model.VectorSize = file.Model.VectorSize
	}
	if !set("window-size") {
		cfg.Window = file.Window
	}
	if !set("iterations") {
		cfg.Iterations = file.Iterations
	}
	if !set("threads") {
		cfg.Threads = file.Threads
	}
	if !set("min-count") {
		cfg.MinCount = file.MinCount
	}
	if !set("max-vocab") {
		cfg.MaxVocab = file.MaxVocab
	}
	if !set("x-max") {
		cfg.Model.XMax = file.Model.XMax
	}
	if !set("learning-rate") {
		cfg.Model.LearningRate = file.Model.LearningRate
	}
	if !set("max-cost") {
		cfg.Model.MaxCost = file.Model.MaxCost
	}
	if !set("alpha") {
		cfg.Model.Alpha = file.Model.Alpha
	}
}

func progressCallback(model *glove.Model, saveState string, saveInterval int) glove.ProgressCallback {
	return func(p glove.TrainingProgress) {
		if p.Iteration%10 == 0 || p.Iteration == p.MaxIterations {
			log.WithFields(logrus.Fields{
				"iteration": fmt.Sprintf("%d/%d", p.Iteration, p.MaxIterations),
				"cost":      fmt.Sprintf("%.6f", p.Cost),
				"elapsed":   p.TimeElapsed.Truncate(time.Second),
			}).Info("progress")
		}

		if saveState != "" && saveInterval > 0 && p.Iteration%saveInterval == 0 {
			filename := iterFilename(saveState, p.Iteration)
			if err := model.SaveModelState(filename, true, true); err != nil {
				log.WithError(err).WithField("file", filename).Warn("periodic state save failed")
			}
		}
	}
}

// iterFilename inserts the iteration number before the extension:
// state.gob -> state_iter_20.gob
func iterFilename(path string, iteration int) string {
	if dot := strings.LastIndex(path, "."); dot > 0 {
		return fmt.Sprintf("%s_iter_%d%s", path[:dot], iteration, path[dot:])
	}
	return fmt.Sprintf("%s_iter_%d", path, iteration)
}

func newEvaluateCmd() *cobra.Command {
	var (
		vectorsFile    string
		similarityWord string
		analogy        string
		topN           int
		topSimilar     int
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Query analogies and nearest neighbors of trained vectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.WithField("file", vectorsFile).Info("loading vectors")
			model := glove.NewModel()
			model.Logger = log
			if err := model.LoadVectors(vectorsFile); err != nil {
				return err
			}
			log.WithField("vocab_size", model.VocabSize()).Info("vectors loaded")

			a, b, c, err := glove.ParseAnalogy(analogy)
			if err != nil {
				return err
			}

			fmt.Printf("Query: %s is to %s as %s is to ?\n", a, b, c)
			results := model.WordAnalogy(a, b, c, topN)
			if len(results) == 0 {
				fmt.Println("  no results (are all three words in the vocabulary?)")
			}
			for i, word := range results {
				fmt.Printf("  %d. %s\n", i+1, word)
			}

			vec, ok := model.WordVector(similarityWord)
			if !ok {
				return fmt.Errorf("word %q not found in vocabulary", similarityWord)
			}
			fmt.Printf("\nMost similar words to %q:\n", similarityWord)
			for i, s := range model.MostSimilar(vec, topSimilar, similarityWord) {
				fmt.Printf("  %d. %-15s (similarity: %.4f)\n", i+1, s.Word, s.Sim)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vectorsFile, "vectors", "glove_vectors.txt", "Path to the trained vectors file")
	cmd.Flags().StringVar(&similarityWord, "similarity-word", "computer", "Word to find similarities for")
	cmd.Flags().StringVar(&analogy, "analogy", "king:queen::man", "Analogy in format 'a:b::c'")
	cmd.Flags().IntVar(&topN, "top-n", 5, "Number of analogy results")
	cmd.Flags().IntVar(&topSimilar, "top-similar", 10, "Number of similar words")
	return cmd
}

func newTokenizeCmd() *cobra.Command {
	var (
		minCount int
		topWords int
	)

	cmd := &cobra.Command{
		Use:   "tokenize <file>",
		Short: "Tokenize a corpus and print its word frequency table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			freqs := glove.StanfordTokenize(f, minCount)
			sort.SliceStable(freqs, func(i, j int) bool {
				return freqs[i].Freq > freqs[j].Freq
			})

			total := 0
			for _, wf := range freqs {
				total += wf.Freq
			}
			fmt.Printf("%d distinct words, %d tokens (min count %d)\n\n", len(freqs), total, minCount)

			for i, wf := range freqs {
				if topWords > 0 && i >= topWords {
					fmt.Printf("... and %d more words\n", len(freqs)-topWords)
					break
				}
				fmt.Printf("%8d  %s\n", wf.Freq, wf.Word)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minCount, "min-count", 1, "Minimum frequency to report")
	cmd.Flags().IntVar(&topWords, "top", 0, "Only print the N most frequent words (0 = all)")
	return cmd
}
