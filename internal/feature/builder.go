// Package feature assembles the fixed-order feature vector consumed by the
// probability model. The slot order is a public contract shared by trainer
// and predictor; changing it invalidates every stored model artifact.
package feature

import (
	"time"

	"github.com/yourusername/keiba-analytics/internal/factor"
	"github.com/yourusername/keiba-analytics/internal/models"
)

// MissingValue encodes an absent observation. -1 sits outside every
// legitimate range (rates are in [0,1], positions and counts are >= 1,
// ages >= 2, imposts >= 48), so tree models treat it as its own region.
const MissingValue = -1.0

// Size is the number of feature slots.
const Size = 19

// RawInput carries the current-race observations for one horse.
// Nil pointers mark unavailable data.
type RawInput struct {
	Odds        *float64
	Popularity  *int
	Weight      *int
	WeightDiff  *int
	Age         *int
	Impost      *float64
	HorseNumber int
	FieldSize   int
}

// PastStats carries derivations over a horse's past results.
type PastStats struct {
	WinRate           *float64
	Top3Rate          *float64
	AvgFinishPosition *float64
	DaysSinceLastRace *int
}

// Names returns the 19 slot names in vector order.
func Names() []string {
	names := make([]string, 0, Size)
	for _, f := range factor.Names {
		names = append(names, f+"_score")
	}
	names = append(names,
		"odds",
		"popularity",
		"weight",
		"weight_diff",
		"age",
		"impost",
		"horse_number",
		"field_size",
		"win_rate",
		"top3_rate",
		"avg_finish_position",
		"days_since_last_race",
	)
	return names
}

// Build materializes the vector. Optional values collapse to the missing
// sentinel here and nowhere else; everything upstream stays typed.
func Build(factorScores map[string]*float64, raw RawInput, stats PastStats) []float64 {
	v := make([]float64, 0, Size)

	for _, name := range factor.Names {
		v = append(v, floatOrMissing(factorScores[name]))
	}

	v = append(v, floatOrMissing(raw.Odds))
	v = append(v, intOrMissing(raw.Popularity))
	v = append(v, intOrMissing(raw.Weight))
	v = append(v, intOrMissing(raw.WeightDiff))
	v = append(v, intOrMissing(raw.Age))
	v = append(v, floatOrMissing(raw.Impost))
	v = append(v, float64(raw.HorseNumber))
	v = append(v, float64(raw.FieldSize))
	v = append(v, floatOrMissing(stats.WinRate))
	v = append(v, floatOrMissing(stats.Top3Rate))
	v = append(v, floatOrMissing(stats.AvgFinishPosition))
	v = append(v, intOrMissing(stats.DaysSinceLastRace))

	return v
}

// ComputePastStats derives the historical rate features from a horse's past
// results relative to the current race date.
func ComputePastStats(past []models.PastResult, currentDate time.Time) PastStats {
	if len(past) == 0 {
		return PastStats{}
	}

	total := len(past)
	wins := 0
	top3 := 0
	positionSum := 0
	positionCount := 0
	for _, r := range past {
		if r.FinishPosition == 1 {
			wins++
		}
		if r.FinishPosition >= 1 && r.FinishPosition <= 3 {
			top3++
		}
		if r.FinishPosition > 0 {
			positionSum += r.FinishPosition
			positionCount++
		}
	}

	stats := PastStats{}
	winRate := float64(wins) / float64(total)
	top3Rate := float64(top3) / float64(total)
	stats.WinRate = &winRate
	stats.Top3Rate = &top3Rate
	if positionCount > 0 {
		avg := float64(positionSum) / float64(positionCount)
		stats.AvgFinishPosition = &avg
	}
	if !past[0].RaceDate.IsZero() {
		days := int(currentDate.Sub(past[0].RaceDate).Hours() / 24)
		stats.DaysSinceLastRace = &days
	}
	return stats
}

func floatOrMissing(v *float64) float64 {
	if v == nil {
		return MissingValue
	}
	return *v
}

func intOrMissing(v *int) float64 {
	if v == nil {
		return MissingValue
	}
	return float64(*v)
}
