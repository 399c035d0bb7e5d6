package factor

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/keiba-analytics/internal/models"
)

// timeIndexDistanceTolerance bounds the distance match for comparable times.
const timeIndexDistanceTolerance = 100

// timeIndexMinRaces is the minimum comparable-time sample.
const timeIndexMinRaces = 2

// TimeIndex scores how the horse's recorded times on comparable courses sit
// against a baseline: the median of the matching set, or a per-condition
// mean supplied in the context. Faster than baseline scores above 50.
type TimeIndex struct{}

func (TimeIndex) Name() string { return NameTimeIndex }

func (TimeIndex) Calculate(horseID string, past []models.PastResult, ctx Context) (float64, bool) {
	if ctx.Surface == "" || ctx.Distance <= 0 {
		return 0, false
	}

	var times []float64
	for _, r := range finished(past) {
		if r.Surface != ctx.Surface {
			continue
		}
		if delta := r.Distance - ctx.Distance; delta < -timeIndexDistanceTolerance || delta > timeIndexDistanceTolerance {
			continue
		}
		if t, ok := models.ParseFinishTime(r.Time); ok {
			times = append(times, t)
		}
	}

	if len(times) < timeIndexMinRaces {
		return 0, false
	}

	baseline := median(times)
	if ctx.TimeBaseline != nil {
		baseline = *ctx.TimeBaseline
	}
	sd := stat.StdDev(times, nil)
	if sd == 0 {
		return 50, true
	}

	// Positive z means faster than baseline.
	z := (baseline - stat.Mean(times, nil)) / sd
	return clipScore(50 + 5*z), true
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
