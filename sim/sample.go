package sim

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// sample draws an index with probability proportional to weights.
func sample(rng *rand.Rand, weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, errors.New("sim: empty distribution")
	}
	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)
	total := cum[len(cum)-1]
	if !(total > 0) {
		return 0, errors.Errorf("sim: distribution has total weight %g", total)
	}
	r := rng.Float64() * total
	last := 0
	for i, c := range cum {
		if weights[i] <= 0 {
			continue
		}
		if c > r {
			return i, nil
		}
		last = i
	}
	return last, nil
}

// normalise scales weights to sum to one in place.
func normalise(weights []float64) {
	total := floats.Sum(weights)
	if total > 0 {
		floats.Scale(1/total, weights)
	}
}
