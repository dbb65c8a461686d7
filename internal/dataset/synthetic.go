package dataset

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"icb-classifier-go/pkg/randomnormal"
	"icb-classifier-go/pkg/readmatrix"

	"gonum.org/v1/gonum/mat"
)

// SyntheticOptions describes a class-separated expression table. Features
// are split into NumClasses consecutive blocks; rows of class c get Shift
// added to the mean of block c.
type SyntheticOptions struct {
	PerClass [NumClasses]int
	Features int
	Mean     float64
	StdDev   float64
	Shift    float64
}

// DefaultSynthetic is the balanced 300 x 30 table.
func DefaultSynthetic() SyntheticOptions {
	return SyntheticOptions{
		PerClass: [NumClasses]int{100, 100, 100},
		Features: 30,
		Mean:     2,
		StdDev:   1,
		Shift:    1.5,
	}
}

// Synthetic draws a dataset with non-negative values, rows in random order.
func Synthetic(opts SyntheticOptions, rng *rand.Rand) (*Dataset, error) {
	if opts.Features < NumClasses {
		return nil, fmt.Errorf("synthetic: need at least %d features, got %d", NumClasses, opts.Features)
	}
	var labels []Class
	for c, n := range opts.PerClass {
		for i := 0; i < n; i++ {
			labels = append(labels, Class(c))
		}
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("synthetic: no rows requested")
	}
	rng.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })

	hi := opts.Mean + opts.Shift + 6*opts.StdDev
	base := randomnormal.NewNormalRandGenerator(opts.Mean, opts.StdDev, 0, hi, rng)
	shifted := randomnormal.NewNormalRandGenerator(opts.Mean+opts.Shift, opts.StdDev, 0, hi, rng)

	block := opts.Features / NumClasses
	x := mat.NewDense(len(labels), opts.Features, nil)
	for i, c := range labels {
		row := x.RawRowView(i)
		for j := range row {
			if j/block == int(c) {
				row[j] = shifted.Rand()
			} else {
				row[j] = base.Rand()
			}
		}
	}

	genes := make([]string, opts.Features)
	for j := range genes {
		genes[j] = fmt.Sprintf("GENE%04d", j+1)
	}
	return &Dataset{X: x, Labels: labels, Genes: genes}, nil
}

// WriteFiles stores d in the input formats read by Load: matrix.mtx
// (genes x cells), genes.tsv and metadata.csv with a response column.
func WriteFiles(dir string, d *Dataset, names [NumClasses]string) (Paths, error) {
	p := Paths{
		Matrix:   filepath.Join(dir, "matrix.mtx"),
		Genes:    filepath.Join(dir, "genes.tsv"),
		Metadata: filepath.Join(dir, "metadata.csv"),
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return p, err
	}

	f, err := os.Create(p.Matrix)
	if err != nil {
		return p, err
	}
	if err := readmatrix.WriteMatrixMarket(f, d.X, true); err != nil {
		f.Close()
		return p, err
	}
	if err := f.Close(); err != nil {
		return p, err
	}

	f, err = os.Create(p.Genes)
	if err != nil {
		return p, err
	}
	for _, g := range d.Genes {
		fmt.Fprintf(f, "%s\t%s\n", g, g)
	}
	if err := f.Close(); err != nil {
		return p, err
	}

	f, err = os.Create(p.Metadata)
	if err != nil {
		return p, err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"cell", "response"})
	for i, c := range d.Labels {
		w.Write([]string{fmt.Sprintf("cell%05d", i+1), names[c]})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return p, err
	}
	return p, f.Close()
}
