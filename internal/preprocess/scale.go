package preprocess

import (
	"encoding/json"

	"icb-classifier-go/internal/failure"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes columns to zero mean and unit variance using the
// population statistics of the rows it was fit on. It is immutable once
// fit; Transform never refits.
type Scaler struct {
	mean []float64
	std  []float64
}

// FitScaler learns per-column mean and standard deviation. Columns with
// zero variance get a standard deviation of 1 so they transform to 0.
func FitScaler(x mat.Matrix) (*Scaler, error) {
	rows, cols := x.Dims()
	if rows < 2 {
		return nil, failure.Configuration(failure.StagePreprocess, "scaler needs at least two rows, got %d", rows)
	}
	if cols == 0 {
		return nil, failure.Configuration(failure.StagePreprocess, "scaler needs at least one column")
	}
	s := &Scaler{mean: make([]float64, cols), std: make([]float64, cols)}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		s.mean[j], s.std[j] = stat.PopMeanStdDev(col, nil)
		if s.std[j] == 0 {
			s.std[j] = 1
		}
	}
	return s, nil
}

// Dimensions returns the number of columns the scaler was fit on.
func (s *Scaler) Dimensions() int { return len(s.mean) }

// Mean returns a copy of the fitted column means.
func (s *Scaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Std returns a copy of the fitted column standard deviations.
func (s *Scaler) Std() []float64 { return append([]float64(nil), s.std...) }

// Transform returns a scaled copy of x.
func (s *Scaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.mean) {
		return nil, failure.Configuration(failure.StagePreprocess,
			"table has %d columns but the scaler was fit on %d", cols, len(s.mean))
	}
	out := mat.DenseCopyOf(x)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] = (row[j] - s.mean[j]) / s.std[j]
		}
	}
	return out, nil
}

type scalerJSON struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s *Scaler) MarshalJSON() ([]byte, error) {
	return json.Marshal(scalerJSON{Mean: s.mean, Std: s.std})
}

func (s *Scaler) UnmarshalJSON(data []byte) error {
	var v scalerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v.Mean) != len(v.Std) {
		return failure.Configuration(failure.StagePreprocess, "scaler mean and std lengths differ: %d vs %d", len(v.Mean), len(v.Std))
	}
	s.mean, s.std = v.Mean, v.Std
	return nil
}
