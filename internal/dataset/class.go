// Package dataset holds the feature table and response labels of a run
// and the loaders that produce them.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Class is the index of a response label. The mapping is fixed for the
// whole run: training targets, probability columns, confusion matrix rows
// and attribution outputs all use it.
type Class int

const (
	PR Class = iota
	SD
	PD
)

// NumClasses is the cardinality of the response label set.
const NumClasses = 3

// DefaultLabels are the label names of PR, SD and PD in metadata files.
var DefaultLabels = [NumClasses]string{"PR", "SD", "PD"}

func (c Class) String() string {
	if c < 0 || int(c) >= NumClasses {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return DefaultLabels[c]
}

// ParseLabels maps every value to its class index using names[i] as the
// label of class i.
func ParseLabels(values []string, names [NumClasses]string) ([]Class, error) {
	index := make(map[string]Class, NumClasses)
	for i, n := range names {
		index[n] = Class(i)
	}
	out := make([]Class, len(values))
	for i, v := range values {
		c, ok := index[v]
		if !ok {
			return nil, fmt.Errorf("row %d: label %q is not one of %v", i, v, names)
		}
		out[i] = c
	}
	return out, nil
}

// Counts returns the number of rows per class.
func Counts(labels []Class) [NumClasses]int {
	var n [NumClasses]int
	for _, c := range labels {
		n[c]++
	}
	return n
}

// OneHot returns the len(labels) x NumClasses indicator matrix.
func OneHot(labels []Class) *mat.Dense {
	m := mat.NewDense(len(labels), NumClasses, nil)
	for i, c := range labels {
		m.Set(i, int(c), 1)
	}
	return m
}

// Dataset is a feature table with one label per row. Genes name the
// columns of X.
type Dataset struct {
	X      *mat.Dense
	Labels []Class
	Genes  []string
}

// Rows returns the subset of rows in idx, in that order.
func (d *Dataset) Rows(idx []int) (*mat.Dense, []Class) {
	return SelectRows(d.X, idx), SelectLabels(d.Labels, idx)
}

// SelectRows copies the rows of m listed in idx into a new matrix.
func SelectRows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	if len(idx) == 0 || c == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		out.SetRow(i, mat.Row(nil, r, m))
	}
	return out
}

// SelectLabels returns labels[idx[i]] for every i.
func SelectLabels(labels []Class, idx []int) []Class {
	out := make([]Class, len(idx))
	for i, r := range idx {
		out[i] = labels[r]
	}
	return out
}
