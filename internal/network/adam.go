package network

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam holds the moment estimates for a fixed list of parameters.
type Adam struct {
	LearningRate float64
	Beta1, Beta2 float64
	Epsilon      float64

	params []*Param
	m, v   []*mat.Dense
	step   int
}

// NewAdam returns an optimizer with the usual defaults (beta1 0.9, beta2
// 0.999, epsilon 1e-7) for params.
func NewAdam(params []*Param, learningRate float64) *Adam {
	a := &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		params:       params,
	}
	for _, p := range params {
		r, c := p.Value.Dims()
		a.m = append(a.m, mat.NewDense(r, c, nil))
		a.v = append(a.v, mat.NewDense(r, c, nil))
	}
	return a
}

// Step applies one update using the gradients currently stored in the
// parameters.
func (a *Adam) Step() {
	a.step++
	t := float64(a.step)
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))
	for k, p := range a.params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		m := a.m[k].RawMatrix().Data
		v := a.v[k].RawMatrix().Data
		for i, g := range grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			value[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int { return a.step }
