package network

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mode selects the behavior of stochastic layers in a forward pass.
type Mode int

const (
	// Inference makes every layer deterministic; dropout is the identity.
	Inference Mode = iota
	// Training resamples dropout masks on every forward pass.
	Training
)

func (m Mode) String() string {
	if m == Training {
		return "training"
	}
	return "inference"
}

// Activation is the nonlinearity applied to a dense layer's output.
type Activation string

const (
	ReLU   Activation = "relu"
	Linear Activation = "linear"
	// Softmax is only valid on the last layer. Its gradient is folded into
	// the cross-entropy loss, so Backward receives the gradient with
	// respect to the logits.
	Softmax Activation = "softmax"
)

// Param is a trainable tensor and its gradient from the last backward pass.
type Param struct {
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(r, c int) *Param {
	return &Param{Value: mat.NewDense(r, c, nil), Grad: mat.NewDense(r, c, nil)}
}

// layer is one stage of the feed-forward stack. Forward caches what
// Backward needs; Backward takes the gradient of the loss with respect to
// the layer output and returns it with respect to the input.
type layer interface {
	Forward(x *mat.Dense, mode Mode) *mat.Dense
	Backward(grad *mat.Dense) *mat.Dense
	Params() []*Param
}

// dense is a fully connected layer: out = act(x W + b).
type dense struct {
	in, out    int
	activation Activation
	w, b       *Param // w is in x out, b is 1 x out

	input  *mat.Dense
	output *mat.Dense
}

func newDense(in, out int, act Activation) *dense {
	return &dense{
		in:         in,
		out:        out,
		activation: act,
		w:          newParam(in, out),
		b:          newParam(1, out),
	}
}

// glorotUniform draws weights from U(-l, l) with l = sqrt(6/(in+out)),
// biases start at zero.
func (d *dense) glorotUniform(src rand.Source) {
	limit := math.Sqrt(6 / float64(d.in+d.out))
	u := distuv.Uniform{Min: -limit, Max: limit, Src: src}
	raw := d.w.Value.RawMatrix().Data
	for i := range raw {
		raw[i] = u.Rand()
	}
	d.b.Value.Zero()
}

func (d *dense) Forward(x *mat.Dense, _ Mode) *mat.Dense {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, d.out, nil)
	out.Mul(x, d.w.Value)
	bias := d.b.Value.RawRowView(0)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		floats.Add(row, bias)
		switch d.activation {
		case ReLU:
			for j, v := range row {
				if v < 0 {
					row[j] = 0
				}
			}
		case Softmax:
			softmax(row)
		}
	}
	d.input = x
	d.output = out
	return out
}

func (d *dense) Backward(grad *mat.Dense) *mat.Dense {
	gz := grad
	if d.activation == ReLU {
		gz = mat.DenseCopyOf(grad)
		rows, _ := gz.Dims()
		for i := 0; i < rows; i++ {
			g := gz.RawRowView(i)
			a := d.output.RawRowView(i)
			for j := range g {
				if a[j] <= 0 {
					g[j] = 0
				}
			}
		}
	}

	d.w.Grad.Mul(d.input.T(), gz)
	gb := d.b.Grad.RawRowView(0)
	for j := range gb {
		gb[j] = floats.Sum(mat.Col(nil, j, gz))
	}

	rows, _ := gz.Dims()
	dx := mat.NewDense(rows, d.in, nil)
	dx.Mul(gz, d.w.Value.T())
	return dx
}

func (d *dense) Params() []*Param { return []*Param{d.w, d.b} }

// softmax replaces row by its softmax, shifted by the maximum for
// numerical stability.
func softmax(row []float64) {
	m := floats.Max(row)
	for j, v := range row {
		row[j] = math.Exp(v - m)
	}
	floats.Scale(1/floats.Sum(row), row)
}

// dropout zeroes each activation with probability rate in training mode
// and scales survivors by 1/(1-rate), so inference needs no rescaling.
type dropout struct {
	rate float64
	src  *rand.Rand
	mask *mat.Dense // nil after an inference pass
}

func (d *dropout) Forward(x *mat.Dense, mode Mode) *mat.Dense {
	if mode != Training || d.rate == 0 {
		d.mask = nil
		return x
	}
	rows, cols := x.Dims()
	keep := distuv.Bernoulli{P: 1 - d.rate, Src: d.src}
	scale := 1 / (1 - d.rate)
	mask := mat.NewDense(rows, cols, nil)
	raw := mask.RawMatrix().Data
	for i := range raw {
		raw[i] = keep.Rand() * scale
	}
	out := mat.NewDense(rows, cols, nil)
	out.MulElem(x, mask)
	d.mask = mask
	return out
}

func (d *dropout) Backward(grad *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return grad
	}
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.MulElem(grad, d.mask)
	return out
}

func (d *dropout) Params() []*Param { return nil }
