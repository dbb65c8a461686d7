package main

import (
	"log"
	"os"

	"icb-classifier-go/internal/config"
	"icb-classifier-go/internal/pipeline"
	"icb-classifier-go/internal/presenter"
	"icb-classifier-go/internal/runctx"
)

func main() {
	// Load configuration
	cfg := config.Parse()
	logger := config.NewLogger(cfg.LogLevel)
	rc := runctx.New(cfg.Seed, logger)
	console := presenter.NewConsole(os.Stderr)

	logger.Info("starting classifier", "run_id", rc.RunID, "seed", cfg.Seed, "matrix", cfg.MatrixPath)

	res, err := pipeline.RunFiles(rc, cfg)
	if err != nil {
		console.Failure(err)
		logger.Error("run failed", "run_id", rc.RunID, "error", err)
		os.Exit(1)
	}

	written, err := presenter.WriteArtifacts(cfg.OutputDir, res, cfg.LabelNames, cfg.TopFeatures)
	if err != nil {
		log.Fatal("Error writing artifacts: ", err)
	}
	logger.Info("artifacts written", "run_id", rc.RunID, "files", len(written))

	console.Report(res, cfg.LabelNames, cfg.TopFeatures)
}
