// Package prediction orchestrates the per-race pipeline: past-results
// lookup, factor scoring, aggregation, feature building, and model
// inference, producing the ranked prediction list for one race field.
package prediction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-analytics/internal/factor"
	"github.com/yourusername/keiba-analytics/internal/feature"
	"github.com/yourusername/keiba-analytics/internal/ml"
	"github.com/yourusername/keiba-analytics/internal/models"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

// MaxPastResults caps the history considered per horse.
const MaxPastResults = 20

// debutMarkers identify maiden debut races, which have no usable history.
var debutMarkers = []string{"新馬", "メイクデビュー"}

// Service runs predictions for one race entry set at a time.
type Service struct {
	pastResults repository.PastResultsSource
	horses      repository.HorseRepository
	model       *ml.Model
	aggregator  *factor.Aggregator
	logger      *logrus.Logger
}

// NewService creates a prediction service. model may be nil, in which case
// ml probabilities are zero and ranking falls back to factor scores.
// horses may be nil when pedigree data is unavailable.
func NewService(pastResults repository.PastResultsSource, horses repository.HorseRepository, model *ml.Model, logger *logrus.Logger) (*Service, error) {
	if pastResults == nil {
		return nil, fmt.Errorf("past results source is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	aggregator, err := factor.NewAggregator(nil)
	if err != nil {
		return nil, err
	}
	return &Service{
		pastResults: pastResults,
		horses:      horses,
		model:       model,
		aggregator:  aggregator,
		logger:      logger,
	}, nil
}

// IsDebutRace reports whether the race name marks a maiden debut race.
func IsDebutRace(raceName string) bool {
	for _, marker := range debutMarkers {
		if strings.Contains(raceName, marker) {
			return true
		}
	}
	return false
}

// PredictRace runs the full pipeline over a shutuba entry set and returns
// predictions ranked by combined score. Debut races return an empty list.
func (s *Service) PredictRace(ctx context.Context, shutuba models.ShutubaData) ([]models.PredictionResult, error) {
	if IsDebutRace(shutuba.RaceName) {
		s.logger.WithField("race_id", shutuba.RaceID).Debug("Skipping debut race")
		return nil, nil
	}

	horseIDs := make([]string, len(shutuba.Entries))
	for i, e := range shutuba.Entries {
		horseIDs[i] = e.HorseID
	}

	horseMaster := map[string]*models.Horse{}
	if s.horses != nil {
		var err error
		horseMaster, err = s.horses.GetBatch(ctx, horseIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load horse master rows: %w", err)
		}
	}

	results := make([]models.PredictionResult, 0, len(shutuba.Entries))
	for _, entry := range shutuba.Entries {
		past, err := s.pastResults.GetPastResults(ctx, entry.HorseID, shutuba.Date, MaxPastResults)
		if err != nil {
			return nil, fmt.Errorf("failed to load past results for %s: %w", entry.HorseID, err)
		}

		fctx := s.factorContext(shutuba, entry, horseMaster[entry.HorseID])
		scores := factor.CalculateAll(entry.HorseID, past, fctx)

		var total *float64
		if t, ok := s.aggregator.Total(scores); ok {
			total = &t
		}

		probability := 0.0
		if s.model != nil {
			vec := feature.Build(scores, feature.RawInput{
				Odds:        entry.Odds,
				Popularity:  entry.Popularity,
				Weight:      entry.Weight,
				WeightDiff:  entry.WeightDiff,
				Age:         entry.Age,
				Impost:      &entry.Impost,
				HorseNumber: entry.HorseNumber,
				FieldSize:   len(shutuba.Entries),
			}, feature.ComputePastStats(past, shutuba.Date))

			p, err := s.model.PredictProba(vec)
			if err != nil {
				return nil, fmt.Errorf("model inference failed for %s: %w", entry.HorseID, err)
			}
			probability = p
		}

		results = append(results, models.PredictionResult{
			HorseNumber:   entry.HorseNumber,
			HorseName:     entry.HorseName,
			HorseID:       entry.HorseID,
			MLProbability: probability,
			FactorScores:  scores,
			TotalScore:    total,
		})
	}

	finalizeRanking(results)
	return results, nil
}

func (s *Service) factorContext(shutuba models.ShutubaData, entry models.RaceEntry, horse *models.Horse) factor.Context {
	fctx := factor.Context{
		Surface:        shutuba.Surface,
		Distance:       shutuba.Distance,
		TrackCondition: shutuba.TrackCondition,
		Venue:          shutuba.Venue,
		FieldSize:      len(shutuba.Entries),
		Odds:           entry.Odds,
		Popularity:     entry.Popularity,
	}
	if horse != nil {
		fctx.Sire = horse.Sire
		fctx.DamSire = horse.DamSire
	}
	return fctx
}

// finalizeRanking computes combined scores, orders the field, and assigns
// 1-based ranks in place.
func finalizeRanking(results []models.PredictionResult) {
	maxML := 0.0
	for _, r := range results {
		if r.MLProbability > maxML {
			maxML = r.MLProbability
		}
	}

	for i := range results {
		results[i].CombinedScore = combinedScore(results[i].MLProbability, maxML, results[i].TotalScore)
	}

	sort.SliceStable(results, func(a, b int) bool {
		return lessByCombined(results[a], results[b])
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

// combinedScore is the geometric mean of the race-normalized ml probability
// (scaled to 100) and the weighted factor total. With no model loaded in
// the race (max probability zero) it degrades to the total score alone.
func combinedScore(probability, maxProbability float64, total *float64) *float64 {
	if total == nil {
		return nil
	}
	if maxProbability <= 0 {
		v := *total
		return &v
	}
	normalized := probability / maxProbability * 100
	v := math.Sqrt(normalized * *total)
	return &v
}

// lessByCombined orders by combined score descending; ties resolve by
// higher ml probability, then lower horse number. Missing combined scores
// sort last.
func lessByCombined(a, b models.PredictionResult) bool {
	switch {
	case a.CombinedScore != nil && b.CombinedScore == nil:
		return true
	case a.CombinedScore == nil && b.CombinedScore != nil:
		return false
	case a.CombinedScore != nil && b.CombinedScore != nil && *a.CombinedScore != *b.CombinedScore:
		return *a.CombinedScore > *b.CombinedScore
	}
	if a.MLProbability != b.MLProbability {
		return a.MLProbability > b.MLProbability
	}
	return a.HorseNumber < b.HorseNumber
}
