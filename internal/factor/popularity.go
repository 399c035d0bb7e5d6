package factor

import (
	"math"

	"github.com/yourusername/keiba-analytics/internal/models"
)

// Popularity scores the market's view of the horse in the target race.
// It reads only current-race context, never prior races.
type Popularity struct{}

func (Popularity) Name() string { return NamePopularity }

func (Popularity) Calculate(_ string, _ []models.PastResult, ctx Context) (float64, bool) {
	if ctx.Odds != nil && *ctx.Odds > 0 {
		penalty := math.Min(50, 10*math.Log10(*ctx.Odds))
		return clipScore(100 - penalty), true
	}

	if ctx.Popularity != nil && ctx.FieldSize > 0 {
		rank := *ctx.Popularity
		if rank < 1 || rank > ctx.FieldSize {
			return 0, false
		}
		return clipScore(float64(ctx.FieldSize-rank+1) / float64(ctx.FieldSize) * 100), true
	}

	return 0, false
}
