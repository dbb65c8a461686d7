package heatmapplotter

import (
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

// Labels names the axes of a heatmap. Rows are drawn top to bottom.
type Labels struct {
	X, Y       string
	Rows, Cols []string
}

// MakeHeatmapPlot renders every cell of data with its value printed on top
// and a palette legend, and writes the result as PDF to filename.
func MakeHeatmapPlot(data *mat.Dense, title string, labels Labels, filename string) error {
	rows, cols := data.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("heatmap: empty matrix")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = labels.X
	p.Y.Label.Text = labels.Y

	pal := palette.Heat(10, 1)
	heatmap := plotter.NewHeatMap(matrixToGrid(data), pal)
	heatmap.Min = mat.Min(data)
	heatmap.Max = mat.Max(data)
	if heatmap.Max == heatmap.Min {
		heatmap.Max = heatmap.Min + 1
	}
	p.Add(heatmap)

	values := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, rows*cols),
		Labels: make([]string, 0, rows*cols),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			values.XYs = append(values.XYs, plotter.XY{X: float64(c), Y: float64(rows - 1 - r)})
			values.Labels = append(values.Labels, strconv.FormatFloat(data.At(r, c), 'g', 4, 64))
		}
	}
	cells, err := plotter.NewLabels(values)
	if err != nil {
		return err
	}
	p.Add(cells)

	p.X.Tick.Marker = indexTicks(labels.Cols, cols, false)
	p.Y.Tick.Marker = indexTicks(labels.Rows, rows, true)

	// Create a legend.
	l := plot.NewLegend()
	thumbs := plotter.PaletteThumbnailers(pal)
	nthumbs := len(thumbs)
	for i := nthumbs - 1; i >= 0; i-- {
		t := thumbs[i]
		switch i {
		case 0:
			l.Add(fmt.Sprintf("%.3g", heatmap.Min), t)
		case nthumbs - 1:
			l.Add(fmt.Sprintf("%.3g", heatmap.Max), t)
		default:
			l.Add("", t)
		}
	}

	p.X.Padding = 0
	p.Y.Padding = 0

	img := vgpdf.New(vg.Points(400), vg.Points(320))
	dc := draw.New(img)

	l.Top = true
	// Calculate the width of the legend.
	r := l.Rectangle(dc)
	legendWidth := r.Max.X - r.Min.X
	l.YOffs = -p.Title.TextStyle.FontExtents().Height // Adjust the legend down a little.

	l.Draw(dc)
	dc = draw.Crop(dc, 0, -legendWidth-vg.Millimeter, 0, 0) // Make space for the legend.
	p.Draw(dc)

	w, err := os.Create(filename)
	if err != nil {
		return err
	}
	if _, err = img.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// indexTicks places one named tick per cell. Reversed ticks count from the
// top, matching the row order of the matrix.
func indexTicks(names []string, n int, reversed bool) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, n)
	for i := 0; i < n; i++ {
		label := strconv.Itoa(i)
		if i < len(names) {
			label = names[i]
		}
		v := float64(i)
		if reversed {
			v = float64(n - 1 - i)
		}
		ticks[i] = plot.Tick{Value: v, Label: label}
	}
	return ticks
}

func matrixToGrid(matrix *mat.Dense) plotter.GridXYZ {
	r, c := matrix.Dims()
	return grid{Matrix: matrix, Rows: r, Cols: c}
}

// grid flips rows so that row 0 of the matrix is drawn at the top.
type grid struct {
	Matrix     *mat.Dense
	Rows, Cols int
}

func (g grid) Dims() (c, r int)   { return g.Cols, g.Rows }
func (g grid) Z(c, r int) float64 { return g.Matrix.At(g.Rows-1-r, c) }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }
