package config

import (
	"flag"
	"strings"

	"icb-classifier-go/internal/failure"
)

// Weight partitions accepted by -weights-from.
const (
	WeightsFromTrain = "train"
	WeightsFromFull  = "full"
)

type Config struct {
	MatrixPath, GenesPath, MetadataPath string
	ResponseColumn                      string
	LabelNames                          [3]string

	Seed             uint64
	TestFraction     float64
	WeightsFrom      string
	Epochs           int
	BatchSize        int
	ValidationSplit  float64
	LearningRate     float64
	BackgroundSize   int
	CoalitionSamples int
	ExplainRows      int
	TopFeatures      int

	OutputDir string
	LogLevel  string
}

// Default returns the configuration used when no flag is given.
func Default() *Config {
	return &Config{
		MatrixPath:       "matrix.mtx",
		GenesPath:        "genes.tsv",
		MetadataPath:     "metadata.csv",
		ResponseColumn:   "response",
		LabelNames:       [3]string{"PR", "SD", "PD"},
		Seed:             42,
		TestFraction:     0.3,
		WeightsFrom:      WeightsFromTrain,
		Epochs:           50,
		BatchSize:        8,
		ValidationSplit:  0.1,
		LearningRate:     0.001,
		BackgroundSize:   100,
		CoalitionSamples: 0,
		ExplainRows:      0,
		TopFeatures:      20,
		OutputDir:        "./out",
		LogLevel:         "info",
	}
}

func Parse() *Config {
	return ParseArgs(flag.CommandLine, nil)
}

// ParseArgs registers the flags on fs and parses args. A nil args slice
// parses os.Args[1:] for the command line flag set.
func ParseArgs(fs *flag.FlagSet, args []string) *Config {
	cfg := Default()
	var labels string

	// inputs
	fs.StringVar(&cfg.MatrixPath, "matrix", cfg.MatrixPath, "MatrixMarket file, genes x cells")
	fs.StringVar(&cfg.GenesPath, "genes", cfg.GenesPath, "gene names, one per matrix row")
	fs.StringVar(&cfg.MetadataPath, "metadata", cfg.MetadataPath, "per-cell metadata CSV with a header")
	fs.StringVar(&cfg.ResponseColumn, "response-column", cfg.ResponseColumn, "metadata column holding the response label")
	fs.StringVar(&labels, "labels", strings.Join(cfg.LabelNames[:], ","), "label names for class 0,1,2")

	// preprocessing and training
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed for every random stream of the run")
	fs.Float64Var(&cfg.TestFraction, "test-fraction", cfg.TestFraction, "held-out fraction of rows")
	fs.StringVar(&cfg.WeightsFrom, "weights-from", cfg.WeightsFrom, "partition class weights are computed from: train or full")
	fs.IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "passes over the training partition")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows per mini-batch")
	fs.Float64Var(&cfg.ValidationSplit, "validation-split", cfg.ValidationSplit, "fraction of the training partition used for monitoring")
	fs.Float64Var(&cfg.LearningRate, "learning-rate", cfg.LearningRate, "Adam learning rate")

	// explainer
	fs.IntVar(&cfg.BackgroundSize, "background", cfg.BackgroundSize, "background rows drawn from the training partition")
	fs.IntVar(&cfg.CoalitionSamples, "coalitions", cfg.CoalitionSamples, "coalitions per explained row, 0 for 2*features+2048")
	fs.IntVar(&cfg.ExplainRows, "explain-rows", cfg.ExplainRows, "test rows to explain, 0 for all")
	fs.IntVar(&cfg.TopFeatures, "top", cfg.TopFeatures, "features shown in importance reports")

	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if args == nil && fs == flag.CommandLine {
		flag.Parse()
	} else {
		fs.Parse(args)
	}

	parts := strings.Split(labels, ",")
	if len(parts) == 3 {
		for i := range parts {
			cfg.LabelNames[i] = strings.TrimSpace(parts[i])
		}
	} else {
		cfg.LabelNames = [3]string{}
	}
	return cfg
}

// Validate reports the first setting that cannot produce a run.
func (c *Config) Validate() error {
	switch {
	case c.LabelNames[0] == "" || c.LabelNames[1] == "" || c.LabelNames[2] == "":
		return failure.Configuration(failure.StageConfig, "exactly three non-empty label names are required")
	case c.LabelNames[0] == c.LabelNames[1] || c.LabelNames[1] == c.LabelNames[2] || c.LabelNames[0] == c.LabelNames[2]:
		return failure.Configuration(failure.StageConfig, "label names must be distinct, got %v", c.LabelNames)
	case c.TestFraction <= 0 || c.TestFraction >= 1:
		return failure.Configuration(failure.StageConfig, "test fraction must lie in (0,1), got %v", c.TestFraction)
	case c.WeightsFrom != WeightsFromTrain && c.WeightsFrom != WeightsFromFull:
		return failure.Configuration(failure.StageConfig, "weights-from must be %q or %q, got %q", WeightsFromTrain, WeightsFromFull, c.WeightsFrom)
	case c.Epochs < 1:
		return failure.Configuration(failure.StageConfig, "epochs must be positive, got %d", c.Epochs)
	case c.BatchSize < 1:
		return failure.Configuration(failure.StageConfig, "batch size must be positive, got %d", c.BatchSize)
	case c.ValidationSplit < 0 || c.ValidationSplit >= 1:
		return failure.Configuration(failure.StageConfig, "validation split must lie in [0,1), got %v", c.ValidationSplit)
	case c.LearningRate <= 0:
		return failure.Configuration(failure.StageConfig, "learning rate must be positive, got %v", c.LearningRate)
	case c.BackgroundSize < 1:
		return failure.Configuration(failure.StageConfig, "background size must be positive, got %d", c.BackgroundSize)
	case c.CoalitionSamples < 0 || c.ExplainRows < 0:
		return failure.Configuration(failure.StageConfig, "coalitions and explain-rows must not be negative")
	}
	return nil
}
