package factor

import (
	"fmt"
	"math"
)

// DefaultWeights is the production factor weight table. Weights reflect the
// measured predictive power of each factor and sum to 1.0.
var DefaultWeights = map[string]float64{
	NamePastResults:  0.25,
	NameTimeIndex:    0.18,
	NameLast3F:       0.14,
	NameCourseFit:    0.12,
	NamePopularity:   0.12,
	NamePedigree:     0.10,
	NameRunningStyle: 0.09,
}

// weightSumTolerance bounds how far a weight table may drift from 1.0.
const weightSumTolerance = 0.001

// ValidateWeights checks that a weight table covers exactly the seven
// factors and sums to 1.0 within tolerance.
func ValidateWeights(weights map[string]float64) error {
	sum := 0.0
	for _, name := range Names {
		w, ok := weights[name]
		if !ok {
			return fmt.Errorf("weight table missing factor %q", name)
		}
		if w < 0 {
			return fmt.Errorf("weight for factor %q is negative", name)
		}
		sum += w
	}
	if len(weights) != len(Names) {
		return fmt.Errorf("weight table has %d entries, want %d", len(weights), len(Names))
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights sum to %.4f, want 1.0", sum)
	}
	return nil
}
