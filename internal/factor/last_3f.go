package factor

import "github.com/yourusername/keiba-analytics/internal/models"

// Last-3F scale anchors: 33.0s maps to 100, 38.0s to 0.
const (
	last3FBest  = 33.0
	last3FWorst = 38.0
)

// Last3F scores the best closing three furlongs across the last five starts.
type Last3F struct{}

func (Last3F) Name() string { return NameLast3F }

func (Last3F) Calculate(horseID string, past []models.PastResult, _ Context) (float64, bool) {
	considered := past
	if len(considered) > 5 {
		considered = considered[:5]
	}

	best := 0.0
	found := false
	for _, r := range considered {
		if r.Last3F == nil || *r.Last3F <= 0 {
			continue
		}
		if !found || *r.Last3F < best {
			best = *r.Last3F
			found = true
		}
	}

	if !found {
		return 0, false
	}
	return clipScore((last3FWorst - best) / (last3FWorst - last3FBest) * 100), true
}
