package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"icb-classifier-go/internal/config"
	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/runctx"

	"gonum.org/v1/gonum/mat"
)

func main() {
	opts := dataset.DefaultSynthetic()
	dir := flag.String("out", "./data", "directory receiving matrix.mtx, genes.tsv and metadata.csv")
	seed := flag.Uint64("seed", 42, "seed of the synthetic stream")
	perClass := flag.Int("per-class", opts.PerClass[0], "cells per response class")
	flag.IntVar(&opts.Features, "features", opts.Features, "number of genes")
	flag.Float64Var(&opts.Mean, "mean", opts.Mean, "mean expression")
	flag.Float64Var(&opts.StdDev, "stddev", opts.StdDev, "expression standard deviation")
	flag.Float64Var(&opts.Shift, "shift", opts.Shift, "mean shift of the class specific gene block")
	flag.Parse()
	opts.PerClass = [dataset.NumClasses]int{*perClass, *perClass, *perClass}

	logger := config.NewLogger("info")
	rc := runctx.New(*seed, logger)

	d, err := dataset.Synthetic(opts, rc.Rand(runctx.StreamSynthetic))
	if err != nil {
		log.Fatal(err)
	}
	paths, err := dataset.WriteFiles(*dir, d, dataset.DefaultLabels)
	if err != nil {
		log.Fatal(err)
	}
	rows, cols := d.X.Dims()
	logger.Info("synthetic dataset written", "cells", rows, "genes", cols,
		"matrix", paths.Matrix, "genes_file", paths.Genes, "metadata", paths.Metadata)

	printHistogram(d.X)
}

// printHistogram shows the distribution of all expression values.
func printHistogram(x *mat.Dense) {
	lo, hi := mat.Min(x), mat.Max(x)
	if hi == lo {
		return
	}
	fmt.Println("Expression histogram (20 bins):")
	hist := make([]int, 20)
	rows, cols := x.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			bin := int((x.At(i, j) - lo) / (hi - lo) * 20)
			hist[min(bin, 19)]++
		}
	}

	maxCount := 0
	for _, count := range hist {
		maxCount = max(maxCount, count)
	}

	width := (hi - lo) / 20
	for i, count := range hist {
		bar := strings.Repeat("█", int(float64(count)/float64(maxCount)*50))
		fmt.Printf("%5.2f-%5.2f: %s %d\n", lo+float64(i)*width, lo+float64(i+1)*width, bar, count)
	}
}
