package randomnormal

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalRandGenerator draws normally distributed numbers restricted to
// the interval [min, max] by rejection.
type NormalRandGenerator struct {
	dist distuv.Normal
	min  float64
	max  float64
}

// NewNormalRandGenerator creates a generator drawing from src. The
// interval must contain a non-negligible part of the distribution or Rand
// will spin for a long time.
func NewNormalRandGenerator(mean, stddev, min, max float64, src rand.Source) *NormalRandGenerator {
	if min >= max {
		panic("min must be less than max")
	}
	return &NormalRandGenerator{
		dist: distuv.Normal{
			Mu:    mean,
			Sigma: stddev,
			Src:   src,
		},
		min: min,
		max: max,
	}
}

// Rand draws one number from the interval.
func (g *NormalRandGenerator) Rand() float64 {
	for {
		val := g.dist.Rand()
		if val >= g.min && val <= g.max {
			return val
		}
	}
}

// RandN draws n numbers.
func (g *NormalRandGenerator) RandN(n int) []float64 {
	result := make([]float64, n)
	g.Fill(result)
	return result
}

// Fill overwrites dst with draws.
func (g *NormalRandGenerator) Fill(dst []float64) {
	for i := range dst {
		dst[i] = g.Rand()
	}
}

func (g *NormalRandGenerator) Min() float64 {
	return g.min
}

func (g *NormalRandGenerator) Max() float64 {
	return g.max
}
