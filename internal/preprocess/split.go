package preprocess

import (
	"math"
	"math/rand/v2"
	"slices"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/failure"
)

// StratifiedSplit partitions row indices into train and test so that every
// class keeps its proportion. Class c contributes round(n_c*testFraction)
// rows to test, clamped so both partitions get at least one row of every
// class present. Returned index lists are shuffled.
func StratifiedSplit(labels []dataset.Class, testFraction float64, rng *rand.Rand) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, failure.Configuration(failure.StagePreprocess, "test fraction must lie in (0,1), got %v", testFraction)
	}
	var byClass [dataset.NumClasses][]int
	for i, c := range labels {
		byClass[c] = append(byClass[c], i)
	}

	for c, idx := range byClass {
		n := len(idx)
		if n < 2 {
			return nil, nil, failure.Configuration(failure.StagePreprocess,
				"class %v has %d members, stratifying at test fraction %v needs at least 2", dataset.Class(c), n, testFraction)
		}
		nTest := int(math.Round(float64(n) * testFraction))
		nTest = min(max(nTest, 1), n-1)

		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// Disjoint reports whether no index appears in both a and b.
func Disjoint(a, b []int) bool {
	s := slices.Clone(a)
	slices.Sort(s)
	for _, v := range b {
		if _, found := slices.BinarySearch(s, v); found {
			return false
		}
	}
	return true
}
