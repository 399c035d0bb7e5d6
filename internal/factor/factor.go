// Package factor implements the seven analytical score calculators and their
// weighted aggregation. Every factor maps a horse's history plus the target
// race context to a score in [0,100], or reports that its minimum data are
// absent. Factors never substitute zero for missing.
package factor

import (
	"github.com/yourusername/keiba-analytics/internal/models"
)

// Factor names, in the canonical order used by the feature vector.
const (
	NamePastResults  = "past_results"
	NameCourseFit    = "course_fit"
	NameTimeIndex    = "time_index"
	NameLast3F       = "last_3f"
	NamePopularity   = "popularity"
	NamePedigree     = "pedigree"
	NameRunningStyle = "running_style"
)

// Names lists the seven factors in canonical order.
var Names = []string{
	NamePastResults,
	NameCourseFit,
	NameTimeIndex,
	NameLast3F,
	NamePopularity,
	NamePedigree,
	NameRunningStyle,
}

// Context carries the target-race information factors may need. A zero
// value in an optional field means the datum is unavailable.
type Context struct {
	Surface        models.Surface
	Distance       int
	TrackCondition models.TrackCondition
	Venue          string
	FieldSize      int

	// Pedigree inputs; empty string means unknown.
	Sire    string
	DamSire string

	// Current-race market data. Nil means unavailable.
	Odds       *float64
	Popularity *int

	// Optional per-condition mean finish time in seconds, substituted for
	// the filtered-set median in the time index when supplied.
	TimeBaseline *float64

	// Optional course-specific style win rates keyed by running style.
	CourseStats map[Style]float64
}

// Calculator computes one factor score. ok is false when the factor's
// minimum data are absent.
type Calculator interface {
	Name() string
	Calculate(horseID string, past []models.PastResult, ctx Context) (score float64, ok bool)
}

// All returns one instance of each calculator in canonical order.
func All() []Calculator {
	return []Calculator{
		PastResults{},
		CourseFit{},
		TimeIndex{},
		Last3F{},
		Popularity{},
		Pedigree{},
		RunningStyle{},
	}
}

// CalculateAll runs every calculator and returns the score map used by the
// aggregator and the feature builder. Missing scores are nil.
func CalculateAll(horseID string, past []models.PastResult, ctx Context) map[string]*float64 {
	scores := make(map[string]*float64, len(Names))
	for _, c := range All() {
		if s, ok := c.Calculate(horseID, past, ctx); ok {
			v := s
			scores[c.Name()] = &v
		} else {
			scores[c.Name()] = nil
		}
	}
	return scores
}

func clipScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// finished filters out did-not-finish rows, preserving order.
func finished(past []models.PastResult) []models.PastResult {
	out := make([]models.PastResult, 0, len(past))
	for _, r := range past {
		if r.FinishPosition > 0 {
			out = append(out, r)
		}
	}
	return out
}
