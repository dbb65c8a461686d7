package network

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// probClip keeps log(p) finite when a probability underflows.
const probClip = 1e-7

// CrossEntropy returns the weighted categorical cross-entropy of probs
// against one-hot targets, averaged over the batch size, and its gradient
// with respect to the softmax logits. A nil weights slice weighs every row
// with 1.
func CrossEntropy(probs, targets *mat.Dense, weights []float64) (float64, *mat.Dense) {
	rows, cols := probs.Dims()
	if tr, tc := targets.Dims(); tr != rows || tc != cols {
		panic(mat.ErrShape)
	}
	if weights != nil && len(weights) != rows {
		panic("network: weight length mismatch")
	}
	grad := mat.NewDense(rows, cols, nil)
	scale := 1 / float64(rows)
	loss := 0.0
	for i := 0; i < rows; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		p := probs.RawRowView(i)
		y := targets.RawRowView(i)
		g := grad.RawRowView(i)
		for j := range p {
			if y[j] != 0 {
				loss -= w * y[j] * math.Log(math.Min(math.Max(p[j], probClip), 1-probClip))
			}
			g[j] = w * (p[j] - y[j]) * scale
		}
	}
	return loss * scale, grad
}
