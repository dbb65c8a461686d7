package network

import (
	"math"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"
	"icb-classifier-go/internal/runctx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type TrainOptions struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64 // trailing fraction of the rows held out for monitoring
	LearningRate    float64
}

// DefaultTrainOptions is 50 epochs of batch 8 with a 10% validation slice.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Epochs: 50, BatchSize: 8, ValidationSplit: 0.1, LearningRate: 0.001}
}

// EpochStats is one line of the training history. Loss is the class
// weighted training loss; validation loss and accuracies are unweighted.
// Validation fields are NaN when there is no validation slice.
type EpochStats struct {
	Epoch       int
	Loss        float64
	Accuracy    float64
	ValLoss     float64
	ValAccuracy float64
}

// History is the per-epoch record of a training run.
type History []EpochStats

// Train fits n on x with per-row sample weights. The last
// ValidationSplit of the rows, in the order given, is never trained on and
// only reported in the history. Training rows are reshuffled every epoch.
func Train(rc *runctx.Context, n *Network, x *mat.Dense, labels []dataset.Class, weights []float64, opts TrainOptions) (History, error) {
	log := rc.Stage(string(failure.StageTrain))
	rows, cols := x.Dims()
	switch {
	case cols != n.InputDim():
		return nil, failure.Configuration(failure.StageTrain, "table has %d features but the network expects %d", cols, n.InputDim())
	case rows != len(labels) || rows != len(weights):
		return nil, failure.Configuration(failure.StageTrain, "rows %d, labels %d and weights %d must agree", rows, len(labels), len(weights))
	case opts.Epochs < 1 || opts.BatchSize < 1:
		return nil, failure.Configuration(failure.StageTrain, "epochs and batch size must be positive, got %d and %d", opts.Epochs, opts.BatchSize)
	case opts.ValidationSplit < 0 || opts.ValidationSplit >= 1:
		return nil, failure.Configuration(failure.StageTrain, "validation split must lie in [0,1), got %v", opts.ValidationSplit)
	}

	nTrain := int(float64(rows) * (1 - opts.ValidationSplit))
	if nTrain < 1 {
		return nil, failure.Configuration(failure.StageTrain, "no rows left for training out of %d", rows)
	}
	targets := dataset.OneHot(labels)
	var xVal, yVal *mat.Dense
	var lVal []dataset.Class
	if nTrain < rows {
		xVal = x.Slice(nTrain, rows, 0, cols).(*mat.Dense)
		yVal = targets.Slice(nTrain, rows, 0, dataset.NumClasses).(*mat.Dense)
		lVal = labels[nTrain:]
	}

	n.SetDropoutSource(rc.Rand(runctx.StreamDropout))
	shuffle := rc.Rand(runctx.StreamShuffle)
	opt := NewAdam(n.Params(), opts.LearningRate)

	log.Info("training", "rows", nTrain, "validation_rows", rows-nTrain,
		"parameters", n.NumParameters(), "epochs", opts.Epochs, "batch_size", opts.BatchSize)

	order := make([]int, nTrain)
	for i := range order {
		order[i] = i
	}
	history := make(History, 0, opts.Epochs)
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		shuffle.Shuffle(nTrain, func(i, j int) { order[i], order[j] = order[j], order[i] })

		lossSum, correct := 0.0, 0
		for b, start := 0, 0; start < nTrain; b, start = b+1, start+opts.BatchSize {
			end := min(start+opts.BatchSize, nTrain)
			idx := order[start:end]
			xb := dataset.SelectRows(x, idx)
			yb := dataset.SelectRows(targets, idx)
			wb := make([]float64, len(idx))
			for i, r := range idx {
				wb[i] = weights[r]
			}

			probs := n.Forward(xb, Training)
			loss, grad := CrossEntropy(probs, yb, wb)
			if !failure.IsFinite(loss) {
				return history, &failure.TrainingDivergedError{Epoch: epoch, Batch: b, Loss: loss}
			}
			n.backward(grad)
			opt.Step()

			lossSum += loss * float64(len(idx))
			for i, r := range idx {
				if dataset.Class(floats.MaxIdx(probs.RawRowView(i))) == labels[r] {
					correct++
				}
			}
		}

		stats := EpochStats{
			Epoch:       epoch,
			Loss:        lossSum / float64(nTrain),
			Accuracy:    float64(correct) / float64(nTrain),
			ValLoss:     math.NaN(),
			ValAccuracy: math.NaN(),
		}
		attrs := []any{"epoch", epoch, "loss", stats.Loss, "accuracy", stats.Accuracy}
		if xVal != nil {
			stats.ValLoss, stats.ValAccuracy = Score(n, xVal, yVal, lVal)
			attrs = append(attrs, "val_loss", stats.ValLoss, "val_accuracy", stats.ValAccuracy)
		}
		history = append(history, stats)
		log.Info("epoch", attrs...)
	}
	return history, nil
}

// Score returns the unweighted inference-mode loss and accuracy of n on x.
func Score(n *Network, x, targets *mat.Dense, labels []dataset.Class) (loss, accuracy float64) {
	probs := n.Predict(x)
	loss, _ = CrossEntropy(probs, targets, nil)
	rows, _ := probs.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if dataset.Class(floats.MaxIdx(probs.RawRowView(i))) == labels[i] {
			correct++
		}
	}
	return loss, float64(correct) / float64(rows)
}
