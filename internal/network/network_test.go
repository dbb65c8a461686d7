package network

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"
	"icb-classifier-go/internal/preprocess"
	"icb-classifier-go/internal/runctx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const Tolerance = 1e-9

func Equals(a, b float64) bool {
	return math.Abs(a-b) < Tolerance
}

func seeded(a, b uint64) *rand.Rand { return rand.New(rand.NewPCG(a, b)) }

func randomMatrix(rng *rand.Rand, r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, rng.NormFloat64())
		}
	}
	return m
}

func TestTopologyValidation(t *testing.T) {
	cases := []Topology{
		{Inputs: 0, Hidden: []int{4}, Classes: 3},
		{Inputs: 4, Hidden: []int{4}, Classes: 2},
		{Inputs: 4, Hidden: []int{0}, Classes: 3},
		{Inputs: 4, Hidden: []int{4}, Dropout: 1, Classes: 3},
	}
	for _, top := range cases {
		_, err := New(top, seeded(1, 1), seeded(1, 2))
		var cfgErr *failure.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%+v: expected ConfigurationError, got %v", top, err)
		}
	}
}

func TestICBTopology(t *testing.T) {
	n, err := New(ICBTopology(30), seeded(1, 1), seeded(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	// 3 dense + 3 dropout + output
	if len(n.layers) != 7 {
		t.Errorf("Expected 7 layers, got %d", len(n.layers))
	}
	want := (30*64 + 64) + (64*64 + 64) + (64*32 + 32) + (32*3 + 3)
	if got := n.NumParameters(); got != want {
		t.Errorf("Expected %d parameters, got %d", want, got)
	}
	for _, d := range n.dropouts {
		if d.rate != 0.5 {
			t.Errorf("Expected dropout 0.5, got %v", d.rate)
		}
	}
	if n.denses[len(n.denses)-1].activation != Softmax {
		t.Errorf("Expected softmax output")
	}
	limit := math.Sqrt(6.0 / (30 + 64))
	if mat.Max(n.denses[0].w.Value) > limit || mat.Min(n.denses[0].w.Value) < -limit {
		t.Errorf("Expected Glorot-uniform weights within %v", limit)
	}
}

func TestPredictRowsSumToOne(t *testing.T) {
	rng := seeded(2, 2)
	n, _ := New(ICBTopology(10), rng, rng)
	x := randomMatrix(rng, 25, 10)
	x.Scale(20, x)
	for _, mode := range []Mode{Inference, Training} {
		probs := n.Forward(x, mode)
		r, c := probs.Dims()
		if r != 25 || c != 3 {
			t.Fatalf("Expected 25 x 3, got %d x %d", r, c)
		}
		for i := 0; i < r; i++ {
			row := probs.RawRowView(i)
			if math.Abs(floats.Sum(row)-1) > 1e-12 {
				t.Errorf("%v row %d sums to %v", mode, i, floats.Sum(row))
			}
			if floats.Min(row) < 0 {
				t.Errorf("%v row %d has a negative probability", mode, i)
			}
		}
	}
}

func TestDropoutModes(t *testing.T) {
	rng := seeded(3, 3)
	n, _ := New(ICBTopology(8), rng, seeded(3, 4))
	x := randomMatrix(rng, 5, 8)

	a := n.Predict(x)
	b := n.Predict(x)
	if !mat.Equal(a, b) {
		t.Errorf("Expected inference to be deterministic")
	}
	t1 := n.Forward(x, Training)
	t2 := n.Forward(x, Training)
	if mat.Equal(t1, t2) {
		t.Errorf("Expected training passes to resample dropout masks")
	}
	if mat.Equal(t1, a) {
		t.Errorf("Expected training pass to differ from inference")
	}

	d := &dropout{rate: 0.5, src: seeded(5, 5)}
	ones := mat.NewDense(100, 100, nil)
	for i := 0; i < 100; i++ {
		for j := 0; j < 100; j++ {
			ones.Set(i, j, 1)
		}
	}
	out := d.Forward(ones, Training)
	zeros := 0
	for _, v := range out.RawMatrix().Data {
		switch v {
		case 0:
			zeros++
		case 2:
		default:
			t.Fatalf("Expected dropped or doubled activations, got %v", v)
		}
	}
	if zeros < 4500 || zeros > 5500 {
		t.Errorf("Expected about half the activations dropped, got %d of 10000", zeros)
	}
	if d.Forward(ones, Inference) != ones {
		t.Errorf("Expected inference dropout to pass its input through")
	}
}

func TestCrossEntropy(t *testing.T) {
	probs := mat.NewDense(2, 3, []float64{
		0.5, 0.25, 0.25,
		0.1, 0.1, 0.8,
	})
	targets := dataset.OneHot([]dataset.Class{dataset.PR, dataset.PD})
	loss, grad := CrossEntropy(probs, targets, []float64{2, 1})
	want := (2*math.Log(2) - math.Log(0.8)) / 2
	if !Equals(loss, want) {
		t.Errorf("Expected loss %v, got %v", want, loss)
	}
	// w * (p - y) / batch
	if !Equals(grad.At(0, 0), 2*(0.5-1)/2) || !Equals(grad.At(1, 2), (0.8-1)/2) || !Equals(grad.At(1, 0), 0.1/2) {
		t.Errorf("Unexpected gradient\n%v", mat.Formatted(grad))
	}

	unweighted, _ := CrossEntropy(probs, targets, nil)
	if !Equals(unweighted, (math.Log(2)-math.Log(0.8))/2) {
		t.Errorf("Unexpected unweighted loss %v", unweighted)
	}
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	rng := seeded(4, 4)
	top := Topology{Inputs: 4, Hidden: []int{5, 3}, Classes: 3}
	n, err := New(top, rng, rng)
	if err != nil {
		t.Fatal(err)
	}
	x := randomMatrix(rng, 6, 4)
	labels := []dataset.Class{0, 1, 2, 2, 1, 0}
	targets := dataset.OneHot(labels)
	weights := []float64{1, 0.5, 2, 1.5, 1, 0.7}

	lossAt := func() float64 {
		l, _ := CrossEntropy(n.Forward(x, Inference), targets, weights)
		return l
	}

	_, grad := CrossEntropy(n.Forward(x, Training), targets, weights)
	n.backward(grad)
	var analytic [][]float64
	for _, p := range n.Params() {
		analytic = append(analytic, append([]float64(nil), p.Grad.RawMatrix().Data...))
	}

	const h = 1e-6
	for k, p := range n.Params() {
		vals := p.Value.RawMatrix().Data
		for i := range vals {
			orig := vals[i]
			vals[i] = orig + h
			up := lossAt()
			vals[i] = orig - h
			down := lossAt()
			vals[i] = orig
			numeric := (up - down) / (2 * h)
			if math.Abs(numeric-analytic[k][i]) > 1e-6 {
				t.Errorf("param %d entry %d: analytic %v, numeric %v", k, i, analytic[k][i], numeric)
			}
		}
	}
}

func TestAdamFirstStep(t *testing.T) {
	p := newParam(1, 2)
	p.Value.SetRow(0, []float64{1, -1})
	p.Grad.SetRow(0, []float64{0.5, -3})
	a := NewAdam([]*Param{p}, 0.001)
	a.Step()
	// the first bias-corrected step moves every entry by about lr against its gradient
	if math.Abs(p.Value.At(0, 0)-0.999) > 1e-6 || math.Abs(p.Value.At(0, 1)+0.999) > 1e-6 {
		t.Errorf("Unexpected values after one step: %v", p.Value.RawRowView(0))
	}
	if a.Steps() != 1 {
		t.Errorf("Expected 1 step, got %d", a.Steps())
	}
}

func separable(t *testing.T, seed uint64) (*mat.Dense, []dataset.Class) {
	t.Helper()
	opts := dataset.DefaultSynthetic()
	opts.PerClass = [dataset.NumClasses]int{40, 40, 40}
	opts.Features = 12
	d, err := dataset.Synthetic(opts, seeded(seed, 0))
	if err != nil {
		t.Fatal(err)
	}
	s, err := preprocess.FitScaler(d.X)
	if err != nil {
		t.Fatal(err)
	}
	x, _ := s.Transform(d.X)
	return x, d.Labels
}

func TestTrainLearnsSeparableData(t *testing.T) {
	x, labels := separable(t, 7)
	rc := runctx.New(7, nil)
	n, err := New(ICBTopology(12), rc.Rand(runctx.StreamInit), rc.Rand(runctx.StreamDropout))
	if err != nil {
		t.Fatal(err)
	}
	weights := make([]float64, len(labels))
	for i := range weights {
		weights[i] = 1
	}
	opts := DefaultTrainOptions()
	opts.Epochs = 40
	history, err := Train(rc, n, x, labels, weights, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 40 {
		t.Fatalf("Expected 40 epochs of history, got %d", len(history))
	}
	if history[39].Loss >= history[0].Loss {
		t.Errorf("Expected training loss to fall, got %v -> %v", history[0].Loss, history[39].Loss)
	}
	if math.IsNaN(history[39].ValLoss) || math.IsNaN(history[39].ValAccuracy) {
		t.Errorf("Expected validation metrics with a 10%% slice")
	}
	_, acc := Score(n, x, dataset.OneHot(labels), labels)
	if acc < 0.8 {
		t.Errorf("Expected accuracy above 0.8 on separable data, got %v", acc)
	}
}

func TestTrainIsReproducible(t *testing.T) {
	x, labels := separable(t, 8)
	weights := make([]float64, len(labels))
	for i := range weights {
		weights[i] = 1
	}
	opts := DefaultTrainOptions()
	opts.Epochs = 3
	run := func() *mat.Dense {
		rc := runctx.New(99, nil)
		n, _ := New(ICBTopology(12), rc.Rand(runctx.StreamInit), rc.Rand(runctx.StreamDropout))
		if _, err := Train(rc, n, x, labels, weights, opts); err != nil {
			t.Fatal(err)
		}
		return n.Predict(x)
	}
	if !mat.Equal(run(), run()) {
		t.Errorf("Expected identical seeds to train identical networks")
	}
}

func TestTrainDiverges(t *testing.T) {
	x, labels := separable(t, 9)
	rc := runctx.New(1, nil)
	n, _ := New(ICBTopology(12), rc.Rand(runctx.StreamInit), rc.Rand(runctx.StreamDropout))
	n.denses[0].w.Value.Set(0, 0, math.NaN())
	weights := make([]float64, len(labels))
	for i := range weights {
		weights[i] = 1
	}
	_, err := Train(rc, n, x, labels, weights, DefaultTrainOptions())
	var div *failure.TrainingDivergedError
	if !errors.As(err, &div) {
		t.Fatalf("Expected TrainingDivergedError, got %v", err)
	}
	if div.Epoch != 1 || div.Batch != 0 {
		t.Errorf("Expected divergence at the first batch, got epoch %d batch %d", div.Epoch, div.Batch)
	}
}

func TestTrainRejectsShapes(t *testing.T) {
	rc := runctx.New(1, nil)
	n, _ := New(ICBTopology(4), rc.Rand(runctx.StreamInit), rc.Rand(runctx.StreamDropout))
	x := mat.NewDense(10, 5, nil)
	labels := make([]dataset.Class, 10)
	weights := make([]float64, 10)
	var cfgErr *failure.ConfigurationError
	if _, err := Train(rc, n, x, labels, weights, DefaultTrainOptions()); !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigurationError for feature mismatch, got %v", err)
	}
	x = mat.NewDense(10, 4, nil)
	if _, err := Train(rc, n, x, labels[:9], weights, DefaultTrainOptions()); !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigurationError for label mismatch, got %v", err)
	}
}

func TestSaveLoadPreservesPredictions(t *testing.T) {
	rng := seeded(6, 6)
	n, _ := New(ICBTopology(7), rng, rng)
	x := randomMatrix(rng, 4, 7)
	path := filepath.Join(t.TempDir(), "model.json")
	if err := n.Save(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(n.Predict(x), back.Predict(x)) {
		t.Errorf("Expected restored network to predict identically")
	}
	if back.Topology().Dropout != 0.5 || back.InputDim() != 7 || back.OutputDim() != 3 {
		t.Errorf("Unexpected restored topology %+v", back.Topology())
	}

	var broken Network
	if err := json.Unmarshal([]byte(`{"topology":{"inputs":2,"hidden":[2],"classes":3},"dense":[]}`), &broken); err == nil {
		t.Errorf("Expected layer count mismatch to fail")
	}
}
