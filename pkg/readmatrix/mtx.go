package readmatrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const mtxBanner = "%%MatrixMarket"

// ReadMatrixMarket reads a MatrixMarket coordinate file (real or integer,
// general). With transpose set the result has the file's columns as rows,
// which turns a genes x cells file into a cells x genes table.
// Duplicate entries are summed.
func ReadMatrixMarket(r io.Reader, transpose bool) (*mat.Dense, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("mtx: %w", err)
		}
		return nil, fmt.Errorf("mtx: empty input")
	}
	if err := checkBanner(scanner.Text()); err != nil {
		return nil, err
	}

	var (
		m          *mat.Dense
		rows, cols int
		nnz, seen  int
		line       int = 1
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "%") {
			continue
		}
		fields := strings.Fields(text)
		if m == nil {
			if len(fields) != 3 {
				return nil, fmt.Errorf("mtx: line %d: size line needs 3 fields, got %d", line, len(fields))
			}
			var err error
			if rows, err = strconv.Atoi(fields[0]); err != nil {
				return nil, fmt.Errorf("mtx: line %d: %w", line, err)
			}
			if cols, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("mtx: line %d: %w", line, err)
			}
			if nnz, err = strconv.Atoi(fields[2]); err != nil {
				return nil, fmt.Errorf("mtx: line %d: %w", line, err)
			}
			if rows <= 0 || cols <= 0 || nnz < 0 {
				return nil, fmt.Errorf("mtx: line %d: invalid size %d x %d with %d entries", line, rows, cols, nnz)
			}
			if transpose {
				m = mat.NewDense(cols, rows, nil)
			} else {
				m = mat.NewDense(rows, cols, nil)
			}
			continue
		}

		if len(fields) != 3 {
			return nil, fmt.Errorf("mtx: line %d: entry needs 3 fields, got %d", line, len(fields))
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("mtx: line %d: %w", line, err)
		}
		j, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("mtx: line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("mtx: line %d: %w", line, err)
		}
		if i < 1 || i > rows || j < 1 || j > cols {
			return nil, fmt.Errorf("mtx: line %d: index (%d,%d) outside %d x %d", line, i, j, rows, cols)
		}
		if transpose {
			i, j = j, i
		}
		m.Set(i-1, j-1, m.At(i-1, j-1)+v)
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mtx: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("mtx: missing size line")
	}
	if seen != nnz {
		return nil, fmt.Errorf("mtx: header declares %d entries, found %d", nnz, seen)
	}
	return m, nil
}

func checkBanner(header string) error {
	fields := strings.Fields(strings.ToLower(header))
	if len(fields) != 5 || fields[0] != strings.ToLower(mtxBanner) {
		return fmt.Errorf("mtx: missing %s banner", mtxBanner)
	}
	if fields[1] != "matrix" || fields[2] != "coordinate" {
		return fmt.Errorf("mtx: only coordinate matrices are supported, got %s %s", fields[1], fields[2])
	}
	if fields[3] != "real" && fields[3] != "integer" {
		return fmt.Errorf("mtx: unsupported field %q", fields[3])
	}
	if fields[4] != "general" {
		return fmt.Errorf("mtx: unsupported symmetry %q", fields[4])
	}
	return nil
}

// WriteMatrixMarket writes the non-zero entries of m as a real general
// coordinate file. With transpose set m's columns become the file's rows.
func WriteMatrixMarket(w io.Writer, m mat.Matrix, transpose bool) error {
	r, c := m.Dims()
	if transpose {
		r, c = c, r
	}
	at := func(i, j int) float64 {
		if transpose {
			return m.At(j, i)
		}
		return m.At(i, j)
	}
	nnz := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if at(i, j) != 0 {
				nnz++
			}
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s matrix coordinate real general\n", mtxBanner)
	fmt.Fprintf(bw, "%d %d %d\n", r, c, nnz)
	// column-major order, as 10x-style exports are written
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			if v := at(i, j); v != 0 {
				fmt.Fprintf(bw, "%d %d %s\n", i+1, j+1, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
	}
	return bw.Flush()
}
