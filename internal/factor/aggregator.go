package factor

// Aggregator computes the weighted total score over available factors,
// re-normalizing by the weight mass of the factors that produced a score.
type Aggregator struct {
	weights map[string]float64
}

// NewAggregator creates an aggregator. A nil weight table selects the
// default weights.
func NewAggregator(weights map[string]float64) (*Aggregator, error) {
	if weights == nil {
		weights = DefaultWeights
	}
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	return &Aggregator{weights: weights}, nil
}

// Weights returns a copy of the weight table.
func (a *Aggregator) Weights() map[string]float64 {
	out := make(map[string]float64, len(a.weights))
	for k, v := range a.weights {
		out[k] = v
	}
	return out
}

// Total computes the re-normalized weighted total over present scores.
// ok is false when every factor is missing.
func (a *Aggregator) Total(scores map[string]*float64) (float64, bool) {
	totalScore := 0.0
	totalWeight := 0.0
	for name, weight := range a.weights {
		score := scores[name]
		if score == nil {
			continue
		}
		totalScore += *score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0, false
	}
	return totalScore / totalWeight, true
}
