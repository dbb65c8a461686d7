// Package evaluate scores held-out predictions: argmax classes, one-vs-rest
// ROC-AUC, the confusion matrix and a per-class classification report.
package evaluate

import (
	"math"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// sumTolerance bounds how far a probability row may sum from 1.
const sumTolerance = 1e-6

// Predictor is what the evaluator needs from a trained model.
type Predictor interface {
	Predict(x mat.Matrix) *mat.Dense
}

// Result is the evaluation of one held-out partition.
type Result struct {
	Probabilities *mat.Dense
	Predicted     []dataset.Class
	AUC           float64
	ClassAUC      [dataset.NumClasses]float64
	Confusion     *mat.Dense
	Report        Report
}

// Evaluate predicts x with the model and scores the result against labels.
func Evaluate(model Predictor, x mat.Matrix, labels []dataset.Class) (*Result, error) {
	if r, _ := x.Dims(); r != len(labels) {
		return nil, failure.Evaluation("table has %d rows but %d labels", r, len(labels))
	}
	return Score(model.Predict(x), labels)
}

// Score evaluates an existing probability matrix.
func Score(probs *mat.Dense, labels []dataset.Class) (*Result, error) {
	if err := CheckProbabilities(probs); err != nil {
		return nil, err
	}
	if r, _ := probs.Dims(); r != len(labels) {
		return nil, failure.Evaluation("probability matrix has %d rows but %d labels", r, len(labels))
	}
	predicted := Argmax(probs)
	classAUC, auc, err := OneVsRestAUC(probs, labels)
	if err != nil {
		return nil, err
	}
	confusion := ConfusionMatrix(labels, predicted)
	return &Result{
		Probabilities: probs,
		Predicted:     predicted,
		AUC:           auc,
		ClassAUC:      classAUC,
		Confusion:     confusion,
		Report:        NewReport(confusion),
	}, nil
}

// CheckProbabilities verifies the column count, finiteness and row sums.
func CheckProbabilities(probs *mat.Dense) error {
	rows, cols := probs.Dims()
	if cols != dataset.NumClasses {
		return failure.Evaluation("probability matrix must have %d columns, got %d", dataset.NumClasses, cols)
	}
	if rows == 0 {
		return failure.Evaluation("probability matrix has no rows")
	}
	for i := 0; i < rows; i++ {
		row := probs.RawRowView(i)
		for _, p := range row {
			if !failure.IsFinite(p) || p < 0 {
				return failure.Evaluation("row %d holds invalid probability %v", i, p)
			}
		}
		if s := floats.Sum(row); math.Abs(s-1) > sumTolerance {
			return failure.Evaluation("row %d sums to %v, not 1", i, s)
		}
	}
	return nil
}

// Argmax returns the most probable class of every row. Ties go to the
// lowest class index.
func Argmax(probs mat.Matrix) []dataset.Class {
	rows, _ := probs.Dims()
	out := make([]dataset.Class, rows)
	var row []float64
	for i := range out {
		row = mat.Row(row, i, probs)
		// MaxIdx returns the first maximal index
		out[i] = dataset.Class(floats.MaxIdx(row))
	}
	return out
}

// BinaryAUC is the area under the ROC curve of scores for the positive
// rows. Tied scores contribute half credit. Both classes must be present.
func BinaryAUC(scores []float64, positive []bool) (float64, error) {
	nPos := 0
	for _, p := range positive {
		if p {
			nPos++
		}
	}
	if nPos == 0 || nPos == len(positive) {
		return math.NaN(), failure.Evaluation("ROC-AUC needs positive and negative rows, got %d of %d positive", nPos, len(positive))
	}
	y := append([]float64(nil), scores...)
	classes := append([]bool(nil), positive...)
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// OneVsRestAUC scores every class against the rest and returns the
// per-class areas and their unweighted mean.
func OneVsRestAUC(probs mat.Matrix, labels []dataset.Class) (perClass [dataset.NumClasses]float64, macro float64, err error) {
	rows, _ := probs.Dims()
	scores := make([]float64, rows)
	positive := make([]bool, rows)
	for c := 0; c < dataset.NumClasses; c++ {
		mat.Col(scores, c, probs)
		for i, l := range labels {
			positive[i] = int(l) == c
		}
		perClass[c], err = BinaryAUC(scores, positive)
		if err != nil {
			return perClass, math.NaN(), err
		}
	}
	return perClass, floats.Sum(perClass[:]) / dataset.NumClasses, nil
}

// ConfusionMatrix counts rows by actual class (row) and predicted class
// (column).
func ConfusionMatrix(actual, predicted []dataset.Class) *mat.Dense {
	m := mat.NewDense(dataset.NumClasses, dataset.NumClasses, nil)
	for i := range actual {
		a, p := int(actual[i]), int(predicted[i])
		m.Set(a, p, m.At(a, p)+1)
	}
	return m
}

// Accuracy is the fraction of matching labels.
func Accuracy(actual, predicted []dataset.Class) float64 {
	if len(actual) == 0 {
		return 0
	}
	c := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			c++
		}
	}
	return float64(c) / float64(len(actual))
}
