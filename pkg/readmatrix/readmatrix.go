package readmatrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadMatrix reads a whitespace separated dense matrix. Empty lines and
// lines starting with # are skipped, as is a non-numeric header line.
func ReadMatrix(filename string) (*mat.Dense, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return ReadDense(file)
}

// ReadDense is ReadMatrix over an arbitrary reader.
func ReadDense(r io.Reader) (*mat.Dense, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	hasHeader := false

	for scanner.Scan() {
		line := scanner.Text()

		if len(line) == 0 || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		fields := strings.Fields(line)

		// a first line with non-numeric fields is a header
		if !hasHeader && len(rows) == 0 {
			allNumeric := true
			for _, field := range fields {
				if _, err := strconv.ParseFloat(field, 64); err != nil {
					allNumeric = false
					break
				}
			}

			if !allNumeric {
				hasHeader = true
				continue
			}
		}

		row := make([]float64, len(fields))
		for i, field := range fields {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse float at line %d, column %d: %w",
					len(rows)+1, i+1, err)
			}
			row[i] = val
		}

		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix is empty")
	}

	cols := len(rows[0])
	flatData := make([]float64, 0, len(rows)*cols)

	for _, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("inconsistent number of columns: expected %d, got %d",
				cols, len(row))
		}
		flatData = append(flatData, row...)
	}

	return mat.NewDense(len(rows), cols, flatData), nil
}

// ReadLines returns the first tab separated field of every non-empty line.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		field, _, _ := strings.Cut(line, "\t")
		out = append(out, strings.TrimSpace(field))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading lines: %w", err)
	}
	return out, nil
}
