// Package explain attributes model outputs to input features with Kernel
// SHAP against a background sample of training rows.
package explain

import (
	"math"
	"math/rand/v2"

	"icb-classifier-go/internal/failure"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// maxBatchRows caps the rows of one masked prediction batch.
const maxBatchRows = 1 << 15

// Model is anything that maps rows to output vectors.
type Model interface {
	Predict(x mat.Matrix) *mat.Dense
}

// SampleBackground draws n distinct rows of x. When n is at least the
// number of rows, every row is used in order.
func SampleBackground(x mat.Matrix, n int, rng *rand.Rand) (*mat.Dense, []int) {
	rows, cols := x.Dims()
	var idx []int
	if n >= rows {
		idx = make([]int, rows)
		for i := range idx {
			idx[i] = i
		}
	} else {
		idx = make([]int, n)
		sampleuv.WithoutReplacement(idx, rows, rng)
	}
	bg := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		bg.SetRow(i, mat.Row(nil, r, x))
	}
	return bg, idx
}

// KernelExplainer computes Shapley value estimates whose sum plus the
// baseline equals the model output exactly.
type KernelExplainer struct {
	model      Model
	background *mat.Dense
	baseline   []float64
	nSamples   int
	rng        *rand.Rand
}

// NewKernelExplainer prepares an explainer. The baseline is the mean
// model output over the background. nSamples is the number of coalitions
// evaluated per row; 0 selects 2*features+2048.
func NewKernelExplainer(model Model, background *mat.Dense, nSamples int, rng *rand.Rand) (*KernelExplainer, error) {
	rows, cols := background.Dims()
	if rows == 0 || cols == 0 {
		return nil, failure.Configuration(failure.StageExplain, "background sample is empty")
	}
	if nSamples < 0 {
		return nil, failure.Configuration(failure.StageExplain, "coalition samples must not be negative, got %d", nSamples)
	}
	out := model.Predict(background)
	_, k := out.Dims()
	baseline := make([]float64, k)
	for j := range baseline {
		baseline[j] = floats.Sum(mat.Col(nil, j, out)) / float64(rows)
	}
	return &KernelExplainer{
		model:      model,
		background: background,
		baseline:   baseline,
		nSamples:   nSamples,
		rng:        rng,
	}, nil
}

// Baseline returns the expected model output over the background.
func (e *KernelExplainer) Baseline() []float64 {
	return append([]float64(nil), e.baseline...)
}

// Explain attributes the output of every row of x.
func (e *KernelExplainer) Explain(x mat.Matrix) (*Attribution, error) {
	rows, m := x.Dims()
	if _, bc := e.background.Dims(); bc != m {
		return nil, failure.Configuration(failure.StageExplain, "rows have %d features but the background has %d", m, bc)
	}
	k := len(e.baseline)
	a := &Attribution{
		Values:   make([]*mat.Dense, k),
		Baseline: e.Baseline(),
		Output:   e.model.Predict(x),
	}
	for c := range a.Values {
		a.Values[c] = mat.NewDense(rows, m, nil)
	}

	masks, weights := e.coalitions(m)
	row := make([]float64, m)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, x)
		phi, err := e.explainRow(row, a.Output.RawRowView(i), masks, weights)
		if err != nil {
			return nil, err
		}
		for c := range a.Values {
			a.Values[c].SetRow(i, phi[c])
		}
	}
	return a, nil
}

// coalitions returns the feature masks and kernel weights used for every
// row. All masks are enumerated when they fit in the sample budget,
// otherwise sizes are drawn proportionally to the kernel and paired with
// their complements.
func (e *KernelExplainer) coalitions(m int) ([][]bool, []float64) {
	if m < 2 {
		return nil, nil
	}
	budget := e.nSamples
	if budget == 0 {
		budget = 2*m + 2048
	}
	budget = max(budget, 2*m)

	if m < 31 && (1<<m)-2 <= budget {
		var masks [][]bool
		var weights []float64
		for s := 1; s < m; s++ {
			w := float64(m-1) / (float64(combin.Binomial(m, s)) * float64(s*(m-s)))
			for _, set := range combin.Combinations(m, s) {
				mask := make([]bool, m)
				for _, j := range set {
					mask[j] = true
				}
				masks = append(masks, mask)
				weights = append(weights, w)
			}
		}
		return masks, weights
	}

	sizeWeights := make([]float64, m-1)
	for s := 1; s < m; s++ {
		sizeWeights[s-1] = float64(m-1) / float64(s*(m-s))
	}
	sizes := sampleuv.NewWeighted(sizeWeights, e.rng)
	perm := make([]int, m)
	for i := range perm {
		perm[i] = i
	}

	masks := make([][]bool, 0, budget+1)
	for len(masks) < budget {
		idx, _ := sizes.Take()
		sizes.Reweight(idx, sizeWeights[idx])
		s := idx + 1
		e.rng.Shuffle(m, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		mask := make([]bool, m)
		complement := make([]bool, m)
		for j := range complement {
			complement[j] = true
		}
		for _, j := range perm[:s] {
			mask[j] = true
			complement[j] = false
		}
		masks = append(masks, mask, complement)
	}
	weights := make([]float64, len(masks))
	for i := range weights {
		weights[i] = 1
	}
	return masks, weights
}

// explainRow solves the weighted least squares problem of Kernel SHAP
// with the efficiency constraint substituted for the last feature.
func (e *KernelExplainer) explainRow(x, fx []float64, masks [][]bool, weights []float64) ([][]float64, error) {
	m := len(x)
	k := len(e.baseline)
	delta := make([]float64, k)
	floats.SubTo(delta, fx, e.baseline)

	phi := make([][]float64, k)
	for c := range phi {
		phi[c] = make([]float64, m)
	}
	if m == 1 {
		for c := range phi {
			phi[c][0] = delta[c]
		}
		return phi, nil
	}

	ey := e.maskedExpectations(x, masks)

	p := m - 1
	ata := mat.NewSymDense(p, nil)
	atb := mat.NewDense(p, k, nil)
	arow := make([]float64, p)
	for i, mask := range masks {
		zl := 0.0
		if mask[m-1] {
			zl = 1
		}
		for j := 0; j < p; j++ {
			arow[j] = -zl
			if mask[j] {
				arow[j]++
			}
		}
		w := weights[i]
		for a := 0; a < p; a++ {
			if arow[a] == 0 {
				continue
			}
			for b := a; b < p; b++ {
				ata.SetSym(a, b, ata.At(a, b)+w*arow[a]*arow[b])
			}
			for c := 0; c < k; c++ {
				t := ey.At(i, c) - e.baseline[c] - zl*delta[c]
				atb.Set(a, c, atb.At(a, c)+w*arow[a]*t)
			}
		}
	}

	// a vanishing ridge keeps sampled designs positive definite
	trace := 0.0
	for a := 0; a < p; a++ {
		trace += ata.At(a, a)
	}
	ridge := 1e-12 * math.Max(trace/float64(p), 1)
	for a := 0; a < p; a++ {
		ata.SetSym(a, a, ata.At(a, a)+ridge)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(ata); !ok {
		return nil, failure.Configuration(failure.StageExplain, "coalition design is singular for %d features and %d coalitions", m, len(masks))
	}
	var sol mat.Dense
	if err := chol.SolveTo(&sol, atb); err != nil {
		return nil, failure.Configuration(failure.StageExplain, "solving attribution system: %v", err)
	}

	for c := 0; c < k; c++ {
		rest := 0.0
		for j := 0; j < p; j++ {
			v := sol.At(j, c)
			phi[c][j] = v
			rest += v
		}
		phi[c][m-1] = delta[c] - rest
	}
	return phi, nil
}

// maskedExpectations returns, for every mask, the mean model output over
// the background with the masked-in features taken from x.
func (e *KernelExplainer) maskedExpectations(x []float64, masks [][]bool) *mat.Dense {
	nBg, m := e.background.Dims()
	k := len(e.baseline)
	ey := mat.NewDense(len(masks), k, nil)

	chunk := max(1, maxBatchRows/nBg)
	for start := 0; start < len(masks); start += chunk {
		end := min(start+chunk, len(masks))
		batch := mat.NewDense((end-start)*nBg, m, nil)
		for ci := start; ci < end; ci++ {
			mask := masks[ci]
			for b := 0; b < nBg; b++ {
				dst := batch.RawRowView((ci-start)*nBg + b)
				copy(dst, e.background.RawRowView(b))
				for j, in := range mask {
					if in {
						dst[j] = x[j]
					}
				}
			}
		}
		out := e.model.Predict(batch)
		for ci := start; ci < end; ci++ {
			dst := ey.RawRowView(ci)
			for b := 0; b < nBg; b++ {
				floats.Add(dst, out.RawRowView((ci-start)*nBg+b))
			}
			floats.Scale(1/float64(nBg), dst)
		}
	}
	return ey
}
