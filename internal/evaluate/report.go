package evaluate

import (
	"fmt"
	"strings"

	"icb-classifier-go/internal/dataset"

	"gonum.org/v1/gonum/mat"
)

// ClassScores are the one-vs-rest scores of a single class.
type ClassScores struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a classification report in the usual layout: per-class rows,
// accuracy, macro and support-weighted averages. Undefined ratios (no
// predicted or no actual rows) are reported as 0.
type Report struct {
	Classes     [dataset.NumClasses]ClassScores
	Accuracy    float64
	MacroAvg    ClassScores
	WeightedAvg ClassScores
}

// NewReport derives the report from a confusion matrix with actual classes
// as rows.
func NewReport(confusion mat.Matrix) Report {
	var r Report
	total, correct := 0.0, 0.0
	for c := 0; c < dataset.NumClasses; c++ {
		tp := confusion.At(c, c)
		actual, predicted := 0.0, 0.0
		for k := 0; k < dataset.NumClasses; k++ {
			actual += confusion.At(c, k)
			predicted += confusion.At(k, c)
		}
		s := ClassScores{Support: int(actual)}
		if predicted > 0 {
			s.Precision = tp / predicted
		}
		if actual > 0 {
			s.Recall = tp / actual
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		r.Classes[c] = s
		total += actual
		correct += tp
	}
	if total == 0 {
		return r
	}
	r.Accuracy = correct / total

	for _, s := range r.Classes {
		r.MacroAvg.Precision += s.Precision / dataset.NumClasses
		r.MacroAvg.Recall += s.Recall / dataset.NumClasses
		r.MacroAvg.F1 += s.F1 / dataset.NumClasses
		w := float64(s.Support) / total
		r.WeightedAvg.Precision += s.Precision * w
		r.WeightedAvg.Recall += s.Recall * w
		r.WeightedAvg.F1 += s.F1 * w
	}
	r.MacroAvg.Support = int(total)
	r.WeightedAvg.Support = int(total)
	return r
}

// Format renders the report as aligned text using names for the classes.
func (r Report) Format(names [dataset.NumClasses]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for c, s := range r.Classes {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", names[c], s.Precision, s.Recall, s.F1, s.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	for _, row := range []struct {
		name string
		s    ClassScores
	}{{"macro avg", r.MacroAvg}, {"weighted avg", r.WeightedAvg}} {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", row.name, row.s.Precision, row.s.Recall, row.s.F1, row.s.Support)
	}
	return b.String()
}
