package presenter

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"icb-classifier-go/internal/explain"
	"icb-classifier-go/internal/network"
	"icb-classifier-go/pkg/heatmapplotter"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg" // png canvases
)

// GenerateHeatmap draws a confusion matrix with actual classes as rows.
func GenerateHeatmap(outputPath string, title string, matrix *mat.Dense, names []string) error {
	return heatmapplotter.MakeHeatmapPlot(matrix, title, heatmapplotter.Labels{
		X:    "predicted",
		Y:    "actual",
		Rows: names,
		Cols: names,
	}, outputPath)
}

// PlotHistory writes the per-epoch loss and accuracy curves side by side
// into one file; the format follows the extension of filename.
func PlotHistory(h network.History, filename string) error {
	if len(h) == 0 {
		return fmt.Errorf("presenter: empty history")
	}
	loss, valLoss := make(plotter.XYs, 0, len(h)), make(plotter.XYs, 0, len(h))
	acc, valAcc := make(plotter.XYs, 0, len(h)), make(plotter.XYs, 0, len(h))
	for _, e := range h {
		x := float64(e.Epoch)
		loss = append(loss, plotter.XY{X: x, Y: e.Loss})
		acc = append(acc, plotter.XY{X: x, Y: e.Accuracy})
		if !math.IsNaN(e.ValLoss) {
			valLoss = append(valLoss, plotter.XY{X: x, Y: e.ValLoss})
			valAcc = append(valAcc, plotter.XY{X: x, Y: e.ValAccuracy})
		}
	}

	plots := make([][]*plot.Plot, 1)
	for _, s := range []struct {
		title      string
		train, val plotter.XYs
	}{{"loss", loss, valLoss}, {"accuracy", acc, valAcc}} {
		p := plot.New()
		p.Title.Text = s.title
		p.X.Label.Text = "epoch"
		lines := []any{"train", s.train}
		if len(s.val) > 0 {
			lines = append(lines, "validation", s.val)
		}
		if err := plotutil.AddLinePoints(p, lines...); err != nil {
			return err
		}
		p.Legend.Top = true
		plots[0] = append(plots[0], p)
	}

	img, err := draw.NewFormattedCanvas(8*vg.Inch, 3.5*vg.Inch, formatOf(filename))
	if err != nil {
		return err
	}
	tiles := draw.Tiles{Rows: 1, Cols: 2, PadX: vg.Millimeter, PadY: vg.Millimeter}
	canvases := plot.Align(plots, tiles, draw.New(img))
	for j, p := range plots[0] {
		p.Draw(canvases[0][j])
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if _, err := img.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PlotImportance draws the top ranked features as a bar chart.
func PlotImportance(ranking []explain.Ranked, top int, filename string) error {
	if top <= 0 || top > len(ranking) {
		top = len(ranking)
	}
	if top == 0 {
		return fmt.Errorf("presenter: nothing to rank")
	}
	values := make(plotter.Values, top)
	names := make([]string, top)
	for i, r := range ranking[:top] {
		values[i] = r.Score
		names[i] = featureName(r)
	}

	p := plot.New()
	p.Title.Text = "mean |attribution|"
	bars, err := plotter.NewBarChart(values, vg.Points(10))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 50, G: 90, B: 200, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return p.Save(vg.Length(top)*0.3*vg.Inch+2*vg.Inch, 4*vg.Inch, filename)
}

// PlotSummary scatters the attributions of one class for the top ranked
// features, one row of points per feature, coloured by the feature value
// of the explained row.
func PlotSummary(a *explain.Attribution, x mat.Matrix, class int, className string, ranking []explain.Ranked, top int, filename string) error {
	if class < 0 || class >= len(a.Values) {
		return fmt.Errorf("presenter: no attributions for class %d", class)
	}
	if top <= 0 || top > len(ranking) {
		top = len(ranking)
	}
	phi := a.Values[class]
	rows, _ := phi.Dims()

	pal := palette.Heat(16, 1).Colors()
	p := plot.New()
	p.Title.Text = "attributions for " + className
	p.X.Label.Text = "contribution to probability"

	names := make([]string, top)
	for k, r := range ranking[:top] {
		names[k] = featureName(r)
		col := mat.Col(nil, r.Feature, x)
		lo, hi := minMax(col)
		pts := make(plotter.XYs, rows)
		for i := 0; i < rows; i++ {
			// spread points of a feature vertically
			jitter := float64(i%7-3) * 0.05
			pts[i] = plotter.XY{X: phi.At(i, r.Feature), Y: float64(top-1-k) + jitter}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Radius = vg.Points(2)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			gs := s.GlyphStyle
			f := 0.5
			if hi > lo {
				f = (col[i] - lo) / (hi - lo)
			}
			gs.Color = pal[int(f*float64(len(pal)-1))]
			return gs
		}
		p.Add(s)
	}
	ticks := make(plot.ConstantTicks, top)
	for k, name := range names {
		ticks[k] = plot.Tick{Value: float64(top - 1 - k), Label: name}
	}
	p.Y.Tick.Marker = ticks
	p.Add(plotter.NewGrid())

	return p.Save(6*vg.Inch, vg.Length(top)*0.25*vg.Inch+1.5*vg.Inch, filename)
}

func formatOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func featureName(r explain.Ranked) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("feature %d", r.Feature)
}

func minMax(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
