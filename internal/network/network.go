// Package network implements the feed-forward response classifier: dense
// ReLU layers with dropout, a softmax output, weighted categorical
// cross-entropy and the Adam optimizer.
package network

import (
	"math/rand/v2"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"

	"gonum.org/v1/gonum/mat"
)

// Topology fixes the shape of a network.
type Topology struct {
	Inputs  int     `json:"inputs"`
	Hidden  []int   `json:"hidden"`
	Dropout float64 `json:"dropout"` // rate after every hidden layer, 0 for none
	Classes int     `json:"classes"`
}

// ICBTopology is the response classifier:
// in -> 64 relu -> drop .5 -> 64 relu -> drop .5 -> 32 relu -> drop .5 -> 3 softmax.
func ICBTopology(inputs int) Topology {
	return Topology{
		Inputs:  inputs,
		Hidden:  []int{64, 64, 32},
		Dropout: 0.5,
		Classes: dataset.NumClasses,
	}
}

func (t Topology) validate() error {
	if t.Inputs <= 0 {
		return failure.Configuration(failure.StageTrain, "network needs at least one input feature, got %d", t.Inputs)
	}
	if t.Classes != dataset.NumClasses {
		return failure.Configuration(failure.StageTrain, "network output must have %d classes, got %d", dataset.NumClasses, t.Classes)
	}
	for i, h := range t.Hidden {
		if h <= 0 {
			return failure.Configuration(failure.StageTrain, "hidden layer %d has %d units", i, h)
		}
	}
	if t.Dropout < 0 || t.Dropout >= 1 {
		return failure.Configuration(failure.StageTrain, "dropout rate must lie in [0,1), got %v", t.Dropout)
	}
	return nil
}

// Network is a trained or trainable classifier. Its parameters belong to
// the training stage; evaluation and explanation only call Predict.
type Network struct {
	topology Topology
	layers   []layer
	denses   []*dense
	dropouts []*dropout
}

// New builds a network with Glorot-uniform weights drawn from init.
// Dropout masks are drawn from drop.
func New(top Topology, init, drop *rand.Rand) (*Network, error) {
	if err := top.validate(); err != nil {
		return nil, err
	}
	n := build(top, drop)
	for _, d := range n.denses {
		d.glorotUniform(init)
	}
	return n, nil
}

func build(top Topology, drop *rand.Rand) *Network {
	n := &Network{topology: top}
	prev := top.Inputs
	for _, h := range top.Hidden {
		d := newDense(prev, h, ReLU)
		n.layers = append(n.layers, d)
		n.denses = append(n.denses, d)
		if top.Dropout > 0 {
			dr := &dropout{rate: top.Dropout, src: drop}
			n.layers = append(n.layers, dr)
			n.dropouts = append(n.dropouts, dr)
		}
		prev = h
	}
	out := newDense(prev, top.Classes, Softmax)
	n.layers = append(n.layers, out)
	n.denses = append(n.denses, out)
	return n
}

// Topology returns the shape the network was built with.
func (n *Network) Topology() Topology { return n.topology }

// InputDim is the number of features a row must have.
func (n *Network) InputDim() int { return n.topology.Inputs }

// OutputDim is the number of classes.
func (n *Network) OutputDim() int { return n.topology.Classes }

// SetDropoutSource replaces the generator dropout masks are drawn from.
func (n *Network) SetDropoutSource(src *rand.Rand) {
	for _, d := range n.dropouts {
		d.src = src
	}
}

// Forward computes class probabilities for every row of x. In Training
// mode dropout masks are resampled.
func (n *Network) Forward(x mat.Matrix, mode Mode) *mat.Dense {
	if _, c := x.Dims(); c != n.topology.Inputs {
		panic(mat.ErrShape)
	}
	a := mat.DenseCopyOf(x)
	for _, l := range n.layers {
		a = l.Forward(a, mode)
	}
	return a
}

// Predict returns the inference-mode class probabilities of x.
func (n *Network) Predict(x mat.Matrix) *mat.Dense {
	return n.Forward(x, Inference)
}

// backward propagates the gradient with respect to the output logits and
// fills every Param.Grad. It must follow a Forward call on the same batch.
func (n *Network) backward(dLogits *mat.Dense) {
	g := dLogits
	for i := len(n.layers) - 1; i >= 0; i-- {
		g = n.layers[i].Backward(g)
	}
}

// Params lists every trainable tensor, layer by layer.
func (n *Network) Params() []*Param {
	var ps []*Param
	for _, l := range n.layers {
		ps = append(ps, l.Params()...)
	}
	return ps
}

// NumParameters counts the scalar parameters.
func (n *Network) NumParameters() int {
	total := 0
	for _, p := range n.Params() {
		r, c := p.Value.Dims()
		total += r * c
	}
	return total
}
