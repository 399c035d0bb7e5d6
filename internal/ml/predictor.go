package ml

import (
	"fmt"
	"sort"
)

// RankedPrediction pairs a horse with its predicted probability and rank.
type RankedPrediction struct {
	HorseID     string
	Probability float64
	Rank        int
}

// Predictor runs a trained model over a race field.
type Predictor struct {
	model *Model
}

// NewPredictor wraps a fitted model.
func NewPredictor(model *Model) *Predictor {
	return &Predictor{model: model}
}

// PredictProba returns the per-row probabilities in input order.
func (p *Predictor) PredictProba(X [][]float64) ([]float64, error) {
	return p.model.PredictBatch(X)
}

// Rank predicts the field and returns it sorted by probability descending,
// annotated with 1-based ranks. Ties keep input order.
func (p *Predictor) Rank(X [][]float64, horseIDs []string) ([]RankedPrediction, error) {
	if len(X) != len(horseIDs) {
		return nil, fmt.Errorf("matrix has %d rows, got %d horse ids", len(X), len(horseIDs))
	}

	probs, err := p.model.PredictBatch(X)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedPrediction, len(horseIDs))
	for i := range horseIDs {
		ranked[i] = RankedPrediction{HorseID: horseIDs[i], Probability: probs[i]}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Probability > ranked[b].Probability
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}
