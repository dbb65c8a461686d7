package presenter

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/explain"
	"icb-classifier-go/internal/network"

	"gonum.org/v1/gonum/mat"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(filename string, records [][]string) error {
	// Create the CSV file
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveDenseToCSV writes m with an optional header row. When rowNames is
// given it becomes the first column, headed by the first header entry.
func SaveDenseToCSV(m mat.Matrix, header, rowNames []string, filename string) error {
	rows, cols := m.Dims()
	if rowNames != nil && len(rowNames) != rows {
		return fmt.Errorf("presenter: %d row names for %d rows", len(rowNames), rows)
	}
	var records [][]string
	if header != nil {
		records = append(records, header)
	}
	for i := 0; i < rows; i++ {
		record := make([]string, 0, cols+1)
		if rowNames != nil {
			record = append(record, rowNames[i])
		}
		for j := 0; j < cols; j++ {
			record = append(record, formatFloat(m.At(i, j)))
		}
		records = append(records, record)
	}
	return writeCSV(filename, records)
}

// SavePredictions writes one row per evaluated row: actual and predicted
// label followed by the class probabilities.
func SavePredictions(probs mat.Matrix, actual, predicted []dataset.Class, names [dataset.NumClasses]string, filename string) error {
	rows, _ := probs.Dims()
	if len(actual) != rows || len(predicted) != rows {
		return fmt.Errorf("presenter: %d probability rows, %d actual and %d predicted labels", rows, len(actual), len(predicted))
	}
	records := [][]string{{"row", "actual", "predicted", "p_" + names[0], "p_" + names[1], "p_" + names[2]}}
	for i := 0; i < rows; i++ {
		records = append(records, []string{
			strconv.Itoa(i), names[actual[i]], names[predicted[i]],
			formatFloat(probs.At(i, 0)), formatFloat(probs.At(i, 1)), formatFloat(probs.At(i, 2)),
		})
	}
	return writeCSV(filename, records)
}

// SaveHistory writes the training history; missing validation values are
// left empty.
func SaveHistory(h network.History, filename string) error {
	records := [][]string{{"epoch", "loss", "accuracy", "val_loss", "val_accuracy"}}
	opt := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return formatFloat(v)
	}
	for _, e := range h {
		records = append(records, []string{
			strconv.Itoa(e.Epoch), formatFloat(e.Loss), formatFloat(e.Accuracy), opt(e.ValLoss), opt(e.ValAccuracy),
		})
	}
	return writeCSV(filename, records)
}

// SaveAttributions writes one file per class, named by pattern with the
// class name substituted, with feature names as the header. The baseline
// and output columns close every row.
func SaveAttributions(a *explain.Attribution, features []string, names [dataset.NumClasses]string, pattern string) ([]string, error) {
	var files []string
	for c, v := range a.Values {
		_, cols := v.Dims()
		header := make([]string, 0, cols+2)
		for j := 0; j < cols; j++ {
			if j < len(features) {
				header = append(header, features[j])
			} else {
				header = append(header, "f"+strconv.Itoa(j))
			}
		}
		header = append(header, "baseline", "output")

		baseline := formatFloat(a.Baseline[c])
		records := [][]string{header}
		rows, _ := v.Dims()
		for i := 0; i < rows; i++ {
			record := make([]string, 0, cols+2)
			for _, x := range v.RawRowView(i) {
				record = append(record, formatFloat(x))
			}
			record = append(record, baseline, formatFloat(a.Output.At(i, c)))
			records = append(records, record)
		}

		name := fmt.Sprintf(pattern, names[c])
		if err := writeCSV(name, records); err != nil {
			return files, err
		}
		files = append(files, name)
	}
	return files, nil
}

// SaveImportance writes the ranking with the per-class scores of every
// feature.
func SaveImportance(imp explain.Importance, ranking []explain.Ranked, names [dataset.NumClasses]string, filename string) error {
	header := []string{"rank", "feature", "overall"}
	for c := range imp.PerClass {
		header = append(header, names[c])
	}
	records := [][]string{header}
	for i, r := range ranking {
		record := []string{strconv.Itoa(i + 1), featureName(r), formatFloat(r.Score)}
		for _, s := range imp.PerClass {
			record = append(record, formatFloat(s[r.Feature]))
		}
		records = append(records, record)
	}
	return writeCSV(filename, records)
}
