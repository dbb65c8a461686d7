package explain

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Attribution holds, for every model output (class), a rows x features
// matrix of signed contributions. For each row and class the
// contributions plus Baseline reconstruct Output.
type Attribution struct {
	Values   []*mat.Dense
	Baseline []float64
	Output   *mat.Dense
}

// Reconstruct returns baseline plus the row sums of the contributions,
// one column per class.
func (a *Attribution) Reconstruct() *mat.Dense {
	rows, _ := a.Output.Dims()
	out := mat.NewDense(rows, len(a.Values), nil)
	for c, v := range a.Values {
		for i := 0; i < rows; i++ {
			out.Set(i, c, a.Baseline[c]+floats.Sum(v.RawRowView(i)))
		}
	}
	return out
}

// Importance is the mean absolute contribution of every feature, per class
// and averaged over the classes.
type Importance struct {
	PerClass [][]float64 // class -> feature
	Overall  []float64
}

// Importance aggregates the attribution over rows.
func (a *Attribution) Importance() Importance {
	var imp Importance
	for _, v := range a.Values {
		rows, cols := v.Dims()
		scores := make([]float64, cols)
		for i := 0; i < rows; i++ {
			for j, x := range v.RawRowView(i) {
				if x < 0 {
					x = -x
				}
				scores[j] += x
			}
		}
		if rows > 0 {
			floats.Scale(1/float64(rows), scores)
		}
		imp.PerClass = append(imp.PerClass, scores)
	}
	if len(imp.PerClass) == 0 {
		return imp
	}
	imp.Overall = make([]float64, len(imp.PerClass[0]))
	for _, s := range imp.PerClass {
		floats.Add(imp.Overall, s)
	}
	floats.Scale(1/float64(len(imp.PerClass)), imp.Overall)
	return imp
}

// Ranked is one feature of an importance ranking.
type Ranked struct {
	Feature int
	Name    string
	Score   float64
}

// Rank orders features by descending score; equal scores keep feature
// order. names may be nil.
func Rank(scores []float64, names []string) []Ranked {
	out := make([]Ranked, len(scores))
	for j, s := range scores {
		out[j] = Ranked{Feature: j, Score: s}
		if j < len(names) {
			out[j].Name = names[j]
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
