// Package simulator settles simulated bet tickets against recorded
// payouts. A shared base owns the race scan, the synthetic entry
// reconstruction, and the single payout fetcher reused across the place,
// win, quinella, and trio variants.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-analytics/internal/ml"
	"github.com/yourusername/keiba-analytics/internal/models"
	"github.com/yourusername/keiba-analytics/internal/payout"
	"github.com/yourusername/keiba-analytics/internal/prediction"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

// Stake is the fixed bet size per ticket in yen.
const Stake = 100

// Base carries the collaborators every ticket simulator shares. One payout
// fetcher instance serves the simulator for its whole lifetime, so the
// fetcher's pacing clock spans every settled race.
type Base struct {
	repos   *repository.Repositories
	fetcher payout.Fetcher
	service *prediction.Service
	logger  *logrus.Logger
	topN    int
}

// NewBase wires the shared simulator dependencies. model may be nil for
// factor-only simulation.
func NewBase(repos *repository.Repositories, fetcher payout.Fetcher, model *ml.Model, topN int, logger *logrus.Logger) (*Base, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("payout fetcher is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if topN <= 0 {
		topN = 3
	}

	service, err := prediction.NewService(repos.RaceResult, repos.Horse, model, logger)
	if err != nil {
		return nil, err
	}

	return &Base{
		repos:   repos,
		fetcher: fetcher,
		service: service,
		logger:  logger,
		topN:    topN,
	}, nil
}

// TopN returns the configured selection size for place/win tickets.
func (b *Base) TopN() int {
	return b.topN
}

// predictRace reconstructs the pre-race entry set from the recorded
// outcome and runs the prediction pipeline over it. The returned slice is
// ordered by rank. Empty for debut races.
func (b *Base) predictRace(ctx context.Context, raceID string) (*models.Race, []models.PredictionResult, error) {
	race, err := b.repos.Race.GetByID(ctx, raceID)
	if err != nil {
		return nil, nil, err
	}

	results, err := b.repos.RaceResult.GetByRaceID(ctx, raceID)
	if err != nil {
		return nil, nil, err
	}
	if len(results) == 0 {
		return nil, nil, fmt.Errorf("race %s has no result rows", raceID)
	}

	horseIDs := make([]string, len(results))
	for i, r := range results {
		horseIDs[i] = r.HorseID
	}
	horses, err := b.repos.Horse.GetBatch(ctx, horseIDs)
	if err != nil {
		return nil, nil, err
	}

	shutuba := buildShutuba(race, results, horses)
	predictions, err := b.service.PredictRace(ctx, shutuba)
	if err != nil {
		return nil, nil, err
	}
	return race, predictions, nil
}

// buildShutuba rebuilds the entry set the prediction service would have
// seen at race time: identities, imposts, and pre-race market data, never
// the finish.
func buildShutuba(race *models.Race, results []*models.RaceResult, horses map[string]*models.Horse) models.ShutubaData {
	entries := make([]models.RaceEntry, 0, len(results))
	for _, r := range results {
		name := ""
		if h := horses[r.HorseID]; h != nil {
			name = h.Name
		}
		impost := 0.0
		if r.Impost != nil {
			impost = *r.Impost
		}
		entries = append(entries, models.RaceEntry{
			HorseID:       r.HorseID,
			HorseName:     name,
			HorseNumber:   r.HorseNumber,
			BracketNumber: r.BracketNumber,
			JockeyID:      r.JockeyID,
			JockeyName:    r.JockeyName,
			Impost:        impost,
			Sex:           r.Sex,
			Age:           r.Age,
			Odds:          r.Odds,
			Popularity:    r.Popularity,
			Weight:        r.Weight,
			WeightDiff:    r.WeightDiff,
		})
	}

	return models.ShutubaData{
		RaceID:         race.ID,
		RaceName:       race.Name,
		RaceNumber:     race.RaceNumber,
		Venue:          race.Venue,
		Distance:       race.Distance,
		Surface:        race.Surface,
		TrackCondition: race.TrackCondition,
		Date:           race.Date,
		Entries:        entries,
	}
}

// topHorseNumbers picks the first n predicted horse numbers in rank order.
func topHorseNumbers(predictions []models.PredictionResult, n int) []int {
	if n > len(predictions) {
		n = len(predictions)
	}
	out := make([]int, 0, n)
	for _, p := range predictions[:n] {
		out = append(out, p.HorseNumber)
	}
	return out
}

// runPeriod scans the window and settles each race through simulate.
// Per-race failures are logged and skipped; the window never aborts.
func runPeriod[R any](ctx context.Context, b *Base, from, to time.Time, venues []string, ticket string, simulate func(context.Context, string) (R, error)) ([]R, error) {
	races, err := b.repos.Race.GetByDateRange(ctx, from, to, venues)
	if err != nil {
		return nil, fmt.Errorf("failed to load races: %w", err)
	}

	results := make([]R, 0, len(races))
	skipped := 0
	for _, race := range races {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		result, err := simulate(ctx, race.ID)
		if err != nil {
			if errors.Is(err, errNoPredictions) {
				continue
			}
			skipped++
			b.logger.WithFields(logrus.Fields{
				"ticket":  ticket,
				"race_id": race.ID,
				"error":   err,
			}).Warn("Race simulation failed, continuing")
			continue
		}
		results = append(results, result)
	}

	if skipped > 0 {
		b.logger.WithFields(logrus.Fields{
			"ticket":  ticket,
			"skipped": skipped,
		}).Warn("Races skipped this run")
	}
	return results, nil
}

// errNoPredictions marks debut races, which produce no bets at all.
var errNoPredictions = errors.New("no predictions for race")

// logPayoutMiss records why a race settles with zero payout. The race is
// still recorded with its full investment so return rates stay honest.
func (b *Base) logPayoutMiss(ticket, raceID string, err error) {
	b.logger.WithFields(logrus.Fields{
		"ticket":  ticket,
		"race_id": raceID,
		"cause":   err,
	}).Warn("No payout for race, recording zero payout")
}

// returnRate divides payout by investment, NaN-safe at zero investment.
func returnRate(totalPayout, totalInvestment int) float64 {
	if totalInvestment == 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(int64(totalPayout)).
		Div(decimal.NewFromInt(int64(totalInvestment))).
		Float64()
	return rate
}
