package factor

import "github.com/yourusername/keiba-analytics/internal/models"

// recencyWeights favors the most recent starts. The last weight repeats for
// any additional rows considered.
var recencyWeights = []float64{0.35, 0.25, 0.20, 0.12, 0.08}

// PastResults scores the weighted average of relative finish position over
// the last five valid starts. Relative position maps the winner of a full
// field to 100 and the last finisher toward zero.
type PastResults struct{}

func (PastResults) Name() string { return NamePastResults }

func (PastResults) Calculate(horseID string, past []models.PastResult, _ Context) (float64, bool) {
	valid := finished(past)
	if len(valid) == 0 {
		return 0, false
	}
	if len(valid) > 5 {
		valid = valid[:5]
	}

	totalScore := 0.0
	totalWeight := 0.0
	for i, r := range valid {
		runners := r.TotalRunners
		if runners <= 0 {
			continue
		}
		relative := float64(runners-r.FinishPosition+1) / float64(runners) * 100
		w := recencyWeights[len(recencyWeights)-1]
		if i < len(recencyWeights) {
			w = recencyWeights[i]
		}
		totalScore += relative * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return 0, false
	}
	return clipScore(totalScore / totalWeight), true
}
