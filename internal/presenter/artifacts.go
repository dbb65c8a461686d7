package presenter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/pipeline"
)

// WriteArtifacts stores every output of a run below dir/<run id> and
// returns the written paths.
func WriteArtifacts(dir string, res *pipeline.Result, names [dataset.NumClasses]string, top int) ([]string, error) {
	out := filepath.Join(dir, res.RunID)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, err
	}
	var written []string
	path := func(name string) string {
		p := filepath.Join(out, name)
		written = append(written, p)
		return p
	}
	labels := names[:]
	ev := res.Evaluation

	steps := []struct {
		what string
		run  func() error
	}{
		{"predictions", func() error {
			return SavePredictions(ev.Probabilities, res.Prepared.YTest, ev.Predicted, names, path("predictions.csv"))
		}},
		{"confusion matrix", func() error {
			header := append([]string{"actual"}, labels...)
			return SaveDenseToCSV(ev.Confusion, header, labels, path("confusion.csv"))
		}},
		{"confusion heatmap", func() error {
			return GenerateHeatmap(path("confusion.pdf"), "Confusion matrix", ev.Confusion, labels)
		}},
		{"report", func() error {
			return os.WriteFile(path("report.txt"), []byte(ev.Report.Format(names)), 0o644)
		}},
		{"history", func() error { return SaveHistory(res.History, path("history.csv")) }},
		{"history plot", func() error { return PlotHistory(res.History, path("history.png")) }},
		{"attributions", func() error {
			files, err := SaveAttributions(res.Attribution, res.Dataset.Genes, names, filepath.Join(out, "attributions_%s.csv"))
			written = append(written, files...)
			return err
		}},
		{"importance", func() error {
			return SaveImportance(res.Importance, res.Ranking, names, path("importance.csv"))
		}},
		{"importance plot", func() error { return PlotImportance(res.Ranking, top, path("importance.png")) }},
		{"summary plots", func() error {
			for c, n := range names {
				err := PlotSummary(res.Attribution, res.Explained, c, n, res.Ranking, top, path("summary_"+n+".png"))
				if err != nil {
					return err
				}
			}
			return nil
		}},
		{"model", func() error { return res.Model.Save(path("model.json")) }},
		{"scaler", func() error {
			data, err := json.MarshalIndent(res.Prepared.Scaler, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(path("scaler.json"), data, 0o644)
		}},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return written, fmt.Errorf("writing %s: %w", s.what, err)
		}
	}
	return written, nil
}
