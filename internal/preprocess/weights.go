package preprocess

import (
	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"
)

// ClassWeights maps a class index to the weight of its samples in the
// training loss.
type ClassWeights [dataset.NumClasses]float64

// BalancedWeights returns n / (k * n_c) for every class, so the weighted
// count of every class equals n/k. A class without rows cannot be
// weighted.
func BalancedWeights(labels []dataset.Class) (ClassWeights, error) {
	var w ClassWeights
	counts := dataset.Counts(labels)
	n := float64(len(labels))
	for c, nc := range counts {
		if nc == 0 {
			return w, failure.Configuration(failure.StagePreprocess, "class %v has no rows to weight", dataset.Class(c))
		}
		w[c] = n / (float64(dataset.NumClasses) * float64(nc))
	}
	return w, nil
}

// Sample returns the per-row weights for labels.
func (w ClassWeights) Sample(labels []dataset.Class) []float64 {
	out := make([]float64, len(labels))
	for i, c := range labels {
		out[i] = w[c]
	}
	return out
}
