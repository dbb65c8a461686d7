// Package pipeline runs the stages of a classification run in order:
// load, preprocess, train, evaluate and explain.
package pipeline

import (
	"fmt"
	"time"

	"icb-classifier-go/internal/config"
	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/evaluate"
	"icb-classifier-go/internal/explain"
	"icb-classifier-go/internal/failure"
	"icb-classifier-go/internal/network"
	"icb-classifier-go/internal/preprocess"
	"icb-classifier-go/internal/runctx"

	"gonum.org/v1/gonum/mat"
)

type Options struct {
	Preprocess       preprocess.Options
	Train            network.TrainOptions
	BackgroundSize   int
	CoalitionSamples int // 0 selects the explainer default
	ExplainRows      int // leading test rows explained, 0 for all
}

// DefaultOptions returns the fixed run contract.
func DefaultOptions() Options {
	return Options{
		Preprocess:     preprocess.Options{TestFraction: 0.3, Weights: preprocess.WeightsFromTrain},
		Train:          network.DefaultTrainOptions(),
		BackgroundSize: 100,
	}
}

// OptionsFrom maps command line settings to run options.
func OptionsFrom(cfg *config.Config) Options {
	opts := Options{
		Preprocess: preprocess.Options{TestFraction: cfg.TestFraction},
		Train: network.TrainOptions{
			Epochs:          cfg.Epochs,
			BatchSize:       cfg.BatchSize,
			ValidationSplit: cfg.ValidationSplit,
			LearningRate:    cfg.LearningRate,
		},
		BackgroundSize:   cfg.BackgroundSize,
		CoalitionSamples: cfg.CoalitionSamples,
		ExplainRows:      cfg.ExplainRows,
	}
	if cfg.WeightsFrom == config.WeightsFromFull {
		opts.Preprocess.Weights = preprocess.WeightsFromFull
	}
	return opts
}

// Result collects the output of every stage.
type Result struct {
	RunID      string
	Dataset    *dataset.Dataset
	Prepared   *preprocess.Prepared
	Model      *network.Network
	History    network.History
	Evaluation *evaluate.Result

	Background    *mat.Dense
	BackgroundIdx []int // rows of Prepared.XTrain
	Explained     *mat.Dense
	ExplainedIdx  []int // rows of Prepared.XTest
	Attribution   *explain.Attribution
	Importance    explain.Importance
	Ranking       []explain.Ranked
}

// RunFiles validates cfg, loads the input files and runs the pipeline.
func RunFiles(rc *runctx.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := rc.Stage(string(failure.StageLoad))
	paths := dataset.Paths{Matrix: cfg.MatrixPath, Genes: cfg.GenesPath, Metadata: cfg.MetadataPath}
	log.Info("loading", "matrix", paths.Matrix, "genes", paths.Genes, "metadata", paths.Metadata)
	d, err := dataset.Load(paths, cfg.ResponseColumn, cfg.LabelNames)
	if err != nil {
		return nil, err
	}
	rows, cols := d.X.Dims()
	log.Info("loaded", "cells", rows, "genes", cols, "counts", dataset.Counts(d.Labels))
	return Run(rc, d, OptionsFrom(cfg))
}

// Run executes every stage on an already loaded dataset. The first failing
// stage ends the run.
func Run(rc *runctx.Context, d *dataset.Dataset, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: rc.RunID, Dataset: d}

	prep, err := preprocess.Prepare(rc, d, opts.Preprocess)
	if err != nil {
		return nil, err
	}
	res.Prepared = prep

	_, features := prep.XTrain.Dims()
	model, err := network.New(network.ICBTopology(features), rc.Rand(runctx.StreamInit), rc.Rand(runctx.StreamDropout))
	if err != nil {
		return nil, err
	}
	res.Model = model
	res.History, err = network.Train(rc, model, prep.XTrain, prep.YTrain, prep.Weights.Sample(prep.YTrain), opts.Train)
	if err != nil {
		return nil, err
	}

	log := rc.Stage(string(failure.StageEvaluate))
	res.Evaluation, err = evaluate.Evaluate(model, prep.XTest, prep.YTest)
	if err != nil {
		return nil, err
	}
	log.Info("evaluated", "rows", len(prep.YTest), "auc", res.Evaluation.AUC,
		"class_auc", res.Evaluation.ClassAUC[:], "accuracy", res.Evaluation.Report.Accuracy)

	if err := explainTest(rc, res, opts); err != nil {
		return nil, err
	}
	rc.Logger.Info("run finished", "elapsed", time.Since(start).String())
	return res, nil
}

func explainTest(rc *runctx.Context, res *Result, opts Options) error {
	log := rc.Stage(string(failure.StageExplain))
	prep := res.Prepared
	if opts.BackgroundSize < 1 {
		return failure.Configuration(failure.StageExplain, "background size must be positive, got %d", opts.BackgroundSize)
	}
	res.Background, res.BackgroundIdx = explain.SampleBackground(prep.XTrain, opts.BackgroundSize, rc.Rand(runctx.StreamBackground))

	rows, cols := prep.XTest.Dims()
	n := rows
	if opts.ExplainRows > 0 && opts.ExplainRows < rows {
		n = opts.ExplainRows
	}
	res.ExplainedIdx = make([]int, n)
	for i := range res.ExplainedIdx {
		res.ExplainedIdx[i] = i
	}
	res.Explained = dataset.SelectRows(prep.XTest, res.ExplainedIdx)

	explainer, err := explain.NewKernelExplainer(res.Model, res.Background, opts.CoalitionSamples, rc.Rand(runctx.StreamCoalitions))
	if err != nil {
		return err
	}
	log.Info("explaining", "rows", n, "features", cols, "background", len(res.BackgroundIdx),
		"baseline", explainer.Baseline())
	res.Attribution, err = explainer.Explain(res.Explained)
	if err != nil {
		return fmt.Errorf("explaining test rows: %w", err)
	}
	res.Importance = res.Attribution.Importance()
	res.Ranking = explain.Rank(res.Importance.Overall, res.Dataset.Genes)
	if len(res.Ranking) > 0 {
		log.Info("explained", "top_feature", res.Ranking[0].Name, "top_score", res.Ranking[0].Score)
	}
	return nil
}
