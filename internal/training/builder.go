// Package training builds labeled datasets from the historical store and
// orchestrates full cross-validated training runs.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/keiba-analytics/internal/factor"
	"github.com/yourusername/keiba-analytics/internal/feature"
	"github.com/yourusername/keiba-analytics/internal/models"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

// FactorCalculator computes the full factor score map for one horse.
// The backtest engine passes its cached calculator; plain training uses
// the direct one.
type FactorCalculator interface {
	CalculateAll(horseID string, past []models.PastResult, fctx factor.Context) map[string]*float64
}

// DirectCalculator computes factor scores without memoization.
type DirectCalculator struct{}

// CalculateAll implements FactorCalculator.
func (DirectCalculator) CalculateAll(horseID string, past []models.PastResult, fctx factor.Context) map[string]*float64 {
	return factor.CalculateAll(horseID, past, fctx)
}

// Dataset is the labeled training matrix with per-sample race groups.
type Dataset struct {
	X      [][]float64
	Y      []int
	Groups []string
}

// DataBuilder assembles datasets from races dated strictly before a cutoff.
type DataBuilder struct {
	repos           *repository.Repositories
	calculator      FactorCalculator
	maxPastPerHorse int
}

// NewDataBuilder creates a builder. calculator may be nil for the direct one.
func NewDataBuilder(repos *repository.Repositories, calculator FactorCalculator, maxPastPerHorse int) (*DataBuilder, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if calculator == nil {
		calculator = DirectCalculator{}
	}
	if maxPastPerHorse <= 0 {
		maxPastPerHorse = 20
	}
	return &DataBuilder{repos: repos, calculator: calculator, maxPastPerHorse: maxPastPerHorse}, nil
}

// Build assembles one sample per finisher of every race dated strictly
// before the cutoff. Label is 1 for a top-3 finish. Did-not-finish rows
// never become samples.
func (b *DataBuilder) Build(ctx context.Context, cutoff time.Time) (*Dataset, error) {
	races, err := b.repos.Race.GetByDateRange(ctx, time.Time{}, cutoff.Add(-time.Second), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load training races: %w", err)
	}

	ds := &Dataset{}
	for _, race := range races {
		if err := b.appendRace(ctx, race, ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (b *DataBuilder) appendRace(ctx context.Context, race *models.Race, ds *Dataset) error {
	results, err := b.repos.RaceResult.GetByRaceID(ctx, race.ID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	horseIDs := make([]string, len(results))
	for i, r := range results {
		horseIDs[i] = r.HorseID
	}
	past, err := b.repos.RaceResult.GetPastResultsBatch(ctx, horseIDs, race.Date, b.maxPastPerHorse)
	if err != nil {
		return fmt.Errorf("failed to batch past results: %w", err)
	}
	horses, err := b.repos.Horse.GetBatch(ctx, horseIDs)
	if err != nil {
		return fmt.Errorf("failed to batch horses: %w", err)
	}

	fieldSize := len(results)
	for _, result := range results {
		if result.DidNotFinish() {
			continue
		}

		fctx := factor.Context{
			Surface:        race.Surface,
			Distance:       race.Distance,
			TrackCondition: race.TrackCondition,
			Venue:          race.Venue,
			FieldSize:      fieldSize,
			Odds:           result.Odds,
			Popularity:     result.Popularity,
		}
		if h := horses[result.HorseID]; h != nil {
			fctx.Sire = h.Sire
			fctx.DamSire = h.DamSire
		}

		history := past[result.HorseID]
		scores := b.calculator.CalculateAll(result.HorseID, history, fctx)

		ds.X = append(ds.X, feature.Build(scores, feature.RawInput{
			Odds:        result.Odds,
			Popularity:  result.Popularity,
			Weight:      result.Weight,
			WeightDiff:  result.WeightDiff,
			Age:         result.Age,
			Impost:      result.Impost,
			HorseNumber: result.HorseNumber,
			FieldSize:   fieldSize,
		}, feature.ComputePastStats(history, race.Date)))

		label := 0
		if result.FinishPosition <= 3 {
			label = 1
		}
		ds.Y = append(ds.Y, label)
		ds.Groups = append(ds.Groups, race.ID)
	}

	return nil
}
