package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"icb-classifier-go/internal/failure"
	"icb-classifier-go/pkg/readmatrix"

	"gonum.org/v1/gonum/mat"
)

// Paths locates the three input files of a run.
type Paths struct {
	Matrix   string // MatrixMarket (.mtx) or dense text, genes x cells
	Genes    string
	Metadata string
}

// Load reads the inputs and checks them against each other before any
// stage runs. Every mismatch is a ConfigurationError.
func Load(p Paths, responseColumn string, names [NumClasses]string) (*Dataset, error) {
	cells, err := readCells(p.Matrix)
	if err != nil {
		return nil, &failure.ConfigurationError{Stage: failure.StageLoad, Invariant: "expression matrix readable", Err: err}
	}

	f, err := os.Open(p.Genes)
	if err != nil {
		return nil, &failure.ConfigurationError{Stage: failure.StageLoad, Invariant: "gene list readable", Err: err}
	}
	genes, err := readmatrix.ReadLines(f)
	f.Close()
	if err != nil {
		return nil, &failure.ConfigurationError{Stage: failure.StageLoad, Invariant: "gene list readable", Err: err}
	}

	f, err = os.Open(p.Metadata)
	if err != nil {
		return nil, &failure.ConfigurationError{Stage: failure.StageLoad, Invariant: "metadata readable", Err: err}
	}
	responses, err := ReadResponseColumn(f, responseColumn)
	f.Close()
	if err != nil {
		return nil, &failure.ConfigurationError{Stage: failure.StageLoad, Invariant: "metadata response column readable", Err: err}
	}

	return Assemble(cells, genes, responses, names)
}

// Assemble validates a cells x genes matrix against its gene names and
// per-cell responses.
func Assemble(cells *mat.Dense, genes, responses []string, names [NumClasses]string) (*Dataset, error) {
	nCells, nGenes := cells.Dims()
	if len(genes) != nGenes {
		return nil, failure.Configuration(failure.StageLoad,
			"gene list has %d names but the matrix has %d gene rows", len(genes), nGenes)
	}
	if len(responses) != nCells {
		return nil, failure.Configuration(failure.StageLoad,
			"metadata has %d rows but the matrix has %d cell columns", len(responses), nCells)
	}
	labels, err := ParseLabels(responses, names)
	if err != nil {
		return nil, &failure.ConfigurationError{Stage: failure.StageLoad, Invariant: "every response is a known label", Err: err}
	}
	return &Dataset{X: cells, Labels: labels, Genes: genes}, nil
}

func readCells(path string) (*mat.Dense, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mtx":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readmatrix.ReadMatrixMarket(f, true)
	default:
		m, err := readmatrix.ReadMatrix(path)
		if err != nil {
			return nil, err
		}
		return mat.DenseCopyOf(m.T()), nil
	}
}

// ReadResponseColumn returns the values of the named column of a CSV file
// with a header row.
func ReadResponseColumn(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("metadata is empty")
		}
		return nil, err
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(h) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("column %q not in header %v", column, header)
	}

	var out []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(rec[col]))
	}
	return out, nil
}
