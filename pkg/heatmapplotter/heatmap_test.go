package heatmapplotter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestGridOrientation(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	g := matrixToGrid(m)
	c, r := g.Dims()
	if c != 3 || r != 2 {
		t.Fatalf("Expected 3 columns and 2 rows, got %d and %d", c, r)
	}
	// matrix row 0 is the top grid row
	if g.Z(0, 1) != 1 || g.Z(2, 0) != 6 {
		t.Errorf("Unexpected grid values %v %v", g.Z(0, 1), g.Z(2, 0))
	}

	ticks := indexTicks([]string{"PR", "SD"}, 2, true)
	if ticks[0].Label != "PR" || ticks[0].Value != 1 || ticks[1].Value != 0 {
		t.Errorf("Unexpected ticks %+v", ticks)
	}
	if got := indexTicks(nil, 2, false); got[1].Label != "1" {
		t.Errorf("Expected index labels without names, got %+v", got)
	}
}

func TestMakeHeatmapPlot(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		20, 3, 1,
		2, 25, 4,
		0, 5, 30,
	})
	path := filepath.Join(t.TempDir(), "confusion.pdf")
	names := []string{"PR", "SD", "PD"}
	err := MakeHeatmapPlot(m, "Confusion matrix", Labels{X: "predicted", Y: "actual", Rows: names, Cols: names}, path)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("Expected a PDF file")
	}

	if err := MakeHeatmapPlot(&mat.Dense{}, "", Labels{}, path); err == nil {
		t.Errorf("Expected an empty matrix to fail")
	}
}
