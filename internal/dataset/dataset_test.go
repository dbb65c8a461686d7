package dataset

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"icb-classifier-go/internal/failure"

	"gonum.org/v1/gonum/mat"
)

func TestParseLabels(t *testing.T) {
	labels, err := ParseLabels([]string{"PD", "PR", "SD", "PR"}, DefaultLabels)
	if err != nil {
		t.Fatal(err)
	}
	want := []Class{PD, PR, SD, PR}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("row %d: expected %v, got %v", i, want[i], labels[i])
		}
	}
	if _, err := ParseLabels([]string{"CR"}, DefaultLabels); err == nil {
		t.Errorf("Expected unknown label to fail")
	}
	custom, err := ParseLabels([]string{"responder"}, [NumClasses]string{"responder", "stable", "progressor"})
	if err != nil || custom[0] != PR {
		t.Errorf("Expected custom names to map to class 0, got %v %v", custom, err)
	}
}

func TestOneHotAndCounts(t *testing.T) {
	labels := []Class{SD, SD, PD}
	oh := OneHot(labels)
	want := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		0, 1, 0,
		0, 0, 1,
	})
	if !mat.Equal(oh, want) {
		t.Errorf("Unexpected one-hot\n%v", mat.Formatted(oh))
	}
	if n := Counts(labels); n != [NumClasses]int{0, 2, 1} {
		t.Errorf("Unexpected counts %v", n)
	}
	if PD.String() != "PD" || Class(7).String() != "Class(7)" {
		t.Errorf("Unexpected class names")
	}
}

func TestSelectRows(t *testing.T) {
	d := &Dataset{
		X:      mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
		Labels: []Class{PR, SD, PD},
	}
	x, y := d.Rows([]int{2, 0})
	if !mat.Equal(x, mat.NewDense(2, 2, []float64{5, 6, 1, 2})) {
		t.Errorf("Unexpected rows\n%v", mat.Formatted(x))
	}
	if y[0] != PD || y[1] != PR {
		t.Errorf("Unexpected labels %v", y)
	}
	if r, _ := SelectRows(d.X, nil).Dims(); r != 0 {
		t.Errorf("Expected empty selection")
	}
}

func TestSyntheticAndLoadRoundTrip(t *testing.T) {
	opts := DefaultSynthetic()
	opts.PerClass = [NumClasses]int{5, 6, 7}
	opts.Features = 9
	d, err := Synthetic(opts, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if r, c := d.X.Dims(); r != 18 || c != 9 {
		t.Fatalf("Unexpected dims %d x %d", r, c)
	}
	if n := Counts(d.Labels); n != opts.PerClass {
		t.Errorf("Expected counts %v, got %v", opts.PerClass, n)
	}
	if mat.Min(d.X) < 0 {
		t.Errorf("Expected non-negative expression values")
	}

	paths, err := WriteFiles(t.TempDir(), d, DefaultLabels)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Load(paths, "response", DefaultLabels)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back.X, d.X, 1e-12) {
		t.Errorf("Expected loaded matrix to equal written matrix")
	}
	for i := range d.Labels {
		if back.Labels[i] != d.Labels[i] {
			t.Fatalf("row %d: label %v, want %v", i, back.Labels[i], d.Labels[i])
		}
	}
	if back.Genes[0] != "GENE0001" {
		t.Errorf("Unexpected first gene %q", back.Genes[0])
	}
}

func TestLoadGeneCountMismatch(t *testing.T) {
	opts := DefaultSynthetic()
	opts.PerClass = [NumClasses]int{3, 3, 3}
	opts.Features = 6
	d, err := Synthetic(opts, rand.New(rand.NewPCG(2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	paths, err := WriteFiles(dir, d, DefaultLabels)
	if err != nil {
		t.Fatal(err)
	}
	// one fewer gene name than matrix rows
	short := strings.Join(d.Genes[:len(d.Genes)-1], "\n") + "\n"
	if err := os.WriteFile(paths.Genes, []byte(short), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = Load(paths, "response", DefaultLabels)
	var cfgErr *failure.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if cfgErr.Stage != failure.StageLoad {
		t.Errorf("Expected stage load, got %s", cfgErr.Stage)
	}
}

func TestLoadMetadataErrors(t *testing.T) {
	dir := t.TempDir()
	mtx := filepath.Join(dir, "m.mtx")
	genes := filepath.Join(dir, "g.tsv")
	meta := filepath.Join(dir, "meta.csv")
	os.WriteFile(mtx, []byte("%%MatrixMarket matrix coordinate real general\n2 2 1\n1 1 3\n"), 0o644)
	os.WriteFile(genes, []byte("A\nB\n"), 0o644)

	cases := map[string]string{
		"missing column": "cell,group\nc1,PR\nc2,SD\n",
		"row count":      "cell,response\nc1,PR\n",
		"unknown label":  "cell,response\nc1,PR\nc2,CR\n",
		"empty":          "",
	}
	for name, content := range cases {
		os.WriteFile(meta, []byte(content), 0o644)
		_, err := Load(Paths{Matrix: mtx, Genes: genes, Metadata: meta}, "response", DefaultLabels)
		var cfgErr *failure.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected ConfigurationError, got %v", name, err)
		}
	}

	os.WriteFile(meta, []byte("cell,response\nc1,PR\nc2,SD\n"), 0o644)
	d, err := Load(Paths{Matrix: mtx, Genes: genes, Metadata: meta}, "response", DefaultLabels)
	if err != nil {
		t.Fatal(err)
	}
	if d.X.At(0, 0) != 3 || d.Labels[1] != SD {
		t.Errorf("Unexpected dataset %v %v", mat.Formatted(d.X), d.Labels)
	}
}

func TestLoadDenseMatrix(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Matrix:   filepath.Join(dir, "m.txt"),
		Genes:    filepath.Join(dir, "g.tsv"),
		Metadata: filepath.Join(dir, "meta.csv"),
	}
	// genes x cells
	os.WriteFile(paths.Matrix, []byte("1 2 3\n4 5 6\n"), 0o644)
	os.WriteFile(paths.Genes, []byte("A\nB\n"), 0o644)
	os.WriteFile(paths.Metadata, []byte("response\nPR\nSD\nPD\n"), 0o644)
	d, err := Load(paths, "response", DefaultLabels)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := d.X.Dims(); r != 3 || c != 2 || d.X.At(2, 1) != 6 {
		t.Errorf("Expected transposed 3 x 2 table, got\n%v", mat.Formatted(d.X))
	}
}
