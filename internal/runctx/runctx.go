// Package runctx carries the per-run state every stage needs: the single
// seed, the run id and the logger. Random generators are derived from the
// seed per stream, so no stage depends on how much randomness another
// stage consumed.
package runctx

import (
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Stream identifies an independent source of randomness within a run.
type Stream uint64

const (
	StreamSplit Stream = iota + 1
	StreamInit
	StreamShuffle
	StreamDropout
	StreamBackground
	StreamCoalitions
	StreamSynthetic
)

func (s Stream) String() string {
	switch s {
	case StreamSplit:
		return "split"
	case StreamInit:
		return "init"
	case StreamShuffle:
		return "shuffle"
	case StreamDropout:
		return "dropout"
	case StreamBackground:
		return "background"
	case StreamCoalitions:
		return "coalitions"
	case StreamSynthetic:
		return "synthetic"
	}
	return "unknown"
}

// Context is passed explicitly to every stage of a run.
type Context struct {
	Seed   uint64
	RunID  string
	Logger *slog.Logger
}

// New creates a run context with a fresh run id. A nil logger falls back
// to slog.Default().
func New(seed uint64, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Context{
		Seed:   seed,
		RunID:  id,
		Logger: logger.With("run_id", id),
	}
}

// Rand returns a new generator for the stream. Two calls with the same
// stream return generators producing the same sequence.
func (c *Context) Rand(s Stream) *rand.Rand {
	return rand.New(rand.NewPCG(c.Seed, uint64(s)))
}

// Stage returns the logger annotated with a stage name.
func (c *Context) Stage(name string) *slog.Logger {
	return c.Logger.With("stage", name)
}
