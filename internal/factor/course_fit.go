package factor

import "github.com/yourusername/keiba-analytics/internal/models"

// courseFitDistanceTolerance bounds how far a past race's distance may sit
// from the target while still counting as the same course condition.
const courseFitDistanceTolerance = 100

// courseFitMinRaces is the minimum matching sample before the top-3 rate
// means anything.
const courseFitMinRaces = 3

// CourseFit scores the top-3 rate over past starts on the same surface at a
// comparable distance.
type CourseFit struct{}

func (CourseFit) Name() string { return NameCourseFit }

func (CourseFit) Calculate(horseID string, past []models.PastResult, ctx Context) (float64, bool) {
	if ctx.Surface == "" || ctx.Distance <= 0 {
		return 0, false
	}

	matching := 0
	top3 := 0
	for _, r := range finished(past) {
		if r.Surface != ctx.Surface {
			continue
		}
		if delta := r.Distance - ctx.Distance; delta < -courseFitDistanceTolerance || delta > courseFitDistanceTolerance {
			continue
		}
		matching++
		if r.FinishPosition <= 3 {
			top3++
		}
	}

	if matching < courseFitMinRaces {
		return 0, false
	}
	return clipScore(float64(top3) / float64(matching) * 100), true
}
