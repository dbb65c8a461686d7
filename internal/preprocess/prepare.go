// Package preprocess splits a dataset into stratified train and test
// partitions, standardizes them with statistics of the train partition
// only, and derives class weights.
package preprocess

import (
	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"
	"icb-classifier-go/internal/runctx"

	"gonum.org/v1/gonum/mat"
)

// WeightSource selects the label set class weights are computed from.
type WeightSource int

const (
	// WeightsFromTrain uses the train partition only.
	WeightsFromTrain WeightSource = iota
	// WeightsFromFull uses every row before splitting, test rows included.
	WeightsFromFull
)

type Options struct {
	TestFraction float64
	Weights      WeightSource
}

// Prepared holds everything the training and evaluation stages consume.
type Prepared struct {
	XTrain, XTest *mat.Dense // scaled
	YTrain, YTest []dataset.Class
	TrainIdx      []int // rows of the input dataset
	TestIdx       []int
	Scaler        *Scaler
	Weights       ClassWeights
}

// Prepare runs split, scaling and weighting. The scaler sees train rows
// only.
func Prepare(rc *runctx.Context, d *dataset.Dataset, opts Options) (*Prepared, error) {
	log := rc.Stage(string(failure.StagePreprocess))
	rows, cols := d.X.Dims()
	if rows != len(d.Labels) {
		return nil, failure.Configuration(failure.StagePreprocess, "table has %d rows but %d labels", rows, len(d.Labels))
	}
	if cols == 0 {
		return nil, failure.Configuration(failure.StagePreprocess, "table has no feature columns")
	}

	trainIdx, testIdx, err := StratifiedSplit(d.Labels, opts.TestFraction, rc.Rand(runctx.StreamSplit))
	if err != nil {
		return nil, err
	}
	xTrainRaw, yTrain := d.Rows(trainIdx)
	xTestRaw, yTest := d.Rows(testIdx)

	scaler, err := FitScaler(xTrainRaw)
	if err != nil {
		return nil, err
	}
	xTrain, err := scaler.Transform(xTrainRaw)
	if err != nil {
		return nil, err
	}
	xTest, err := scaler.Transform(xTestRaw)
	if err != nil {
		return nil, err
	}

	weightLabels := yTrain
	if opts.Weights == WeightsFromFull {
		weightLabels = d.Labels
	}
	weights, err := BalancedWeights(weightLabels)
	if err != nil {
		return nil, err
	}

	log.Info("prepared partitions",
		"train_rows", len(trainIdx), "test_rows", len(testIdx), "features", cols,
		"train_counts", dataset.Counts(yTrain), "test_counts", dataset.Counts(yTest),
		"class_weights", weights[:])

	return &Prepared{
		XTrain:   xTrain,
		XTest:    xTest,
		YTrain:   yTrain,
		YTest:    yTest,
		TrainIdx: trainIdx,
		TestIdx:  testIdx,
		Scaler:   scaler,
		Weights:  weights,
	}, nil
}
