// Package failure holds the error taxonomy of a pipeline run. Every error
// is terminal and names the stage that raised it and the invariant it saw
// violated.
package failure

import (
	"fmt"
	"math"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageConfig     Stage = "config"
	StageLoad       Stage = "load"
	StagePreprocess Stage = "preprocess"
	StageTrain      Stage = "train"
	StageEvaluate   Stage = "evaluate"
	StageExplain    Stage = "explain"
)

// ConfigurationError reports invalid shapes, mismatched input files or a
// dataset that cannot be processed with the requested settings.
type ConfigurationError struct {
	Stage     Stage
	Invariant string
	Err       error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error in %s: %s: %v", e.Stage, e.Invariant, e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Stage, e.Invariant)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Configuration builds a ConfigurationError with a formatted invariant.
func Configuration(stage Stage, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Stage: stage, Invariant: fmt.Sprintf(format, args...)}
}

// TrainingDivergedError reports a non-finite training loss.
type TrainingDivergedError struct {
	Epoch int // 1-based
	Batch int // 0-based within the epoch
	Loss  float64
}

func (e *TrainingDivergedError) Error() string {
	return fmt.Sprintf("training diverged in %s: loss must be finite, got %v at epoch %d batch %d",
		StageTrain, e.Loss, e.Epoch, e.Batch)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EvaluationError reports a malformed prediction output.
type EvaluationError struct {
	Invariant string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error in %s: %s", StageEvaluate, e.Invariant)
}

// Evaluation builds an EvaluationError with a formatted invariant.
func Evaluation(format string, args ...any) *EvaluationError {
	return &EvaluationError{Invariant: fmt.Sprintf(format, args...)}
}
