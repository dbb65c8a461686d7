package main

import (
	"errors"
	"log"
	"os"

	"icb-classifier-go/internal/config"
	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"
	"icb-classifier-go/internal/preprocess"

	"gonum.org/v1/gonum/mat"
)

// Loads the inputs and runs every check that precedes training, without
// training.
func main() {
	cfg := config.Parse()
	logger := config.NewLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	d, err := dataset.Load(dataset.Paths{Matrix: cfg.MatrixPath, Genes: cfg.GenesPath, Metadata: cfg.MetadataPath},
		cfg.ResponseColumn, cfg.LabelNames)
	if err != nil {
		var cfgErr *failure.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Error("inputs rejected", "stage", cfgErr.Stage, "reason", cfgErr.Error())
			os.Exit(2)
		}
		log.Fatal(err)
	}

	rows, cols := d.X.Dims()
	counts := dataset.Counts(d.Labels)
	logger.Info("inputs", "cells", rows, "genes", cols, "counts", counts[:],
		"first_gene", d.Genes[0], "last_gene", d.Genes[len(d.Genes)-1])

	if _, err := preprocess.BalancedWeights(d.Labels); err != nil {
		logger.Error("class weights undefined", "error", err)
		os.Exit(2)
	}
	for c, n := range counts {
		if n < 2 {
			logger.Error("class cannot be stratified", "class", cfg.LabelNames[c], "count", n)
			os.Exit(2)
		}
	}

	if cfg.LogLevel == "debug" {
		head := d.X.Slice(0, min(rows, 5), 0, min(cols, 8))
		log.Printf("head=\n%.3g", mat.Formatted(head, mat.Prefix(""), mat.Squeeze()))
	}
	logger.Info("inputs accepted")
}
