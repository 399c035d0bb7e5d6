package simulator

import (
	"context"
	"time"

	"github.com/yourusername/keiba-analytics/internal/metrics"
)

// PlaceRaceResult is one race's place-ticket settlement.
type PlaceRaceResult struct {
	RaceID          string
	RaceName        string
	Venue           string
	RaceDate        time.Time
	TopNPredictions []int
	PlacedHorses    []int
	Hits            []int
	Payouts         []int
	Investment      int
	PayoutTotal     int
}

// PlaceSummary aggregates a period of place-ticket races.
type PlaceSummary struct {
	PeriodFrom      time.Time
	PeriodTo        time.Time
	TotalRaces      int
	TotalBets       int
	TotalHits       int
	HitRate         float64
	TotalInvestment int
	TotalPayout     int
	ReturnRate      float64
	RaceResults     []PlaceRaceResult
}

// PlaceSimulator bets the top-N predicted horses to place. A ticket hits
// when its horse finishes in the top three.
type PlaceSimulator struct {
	*Base
}

// NewPlaceSimulator creates a place-ticket simulator over a shared base.
func NewPlaceSimulator(base *Base) *PlaceSimulator {
	return &PlaceSimulator{Base: base}
}

// SimulateRace settles one race.
func (s *PlaceSimulator) SimulateRace(ctx context.Context, raceID string) (PlaceRaceResult, error) {
	race, predictions, err := s.predictRace(ctx, raceID)
	if err != nil {
		return PlaceRaceResult{}, err
	}
	if len(predictions) == 0 {
		return PlaceRaceResult{}, errNoPredictions
	}

	selected := topHorseNumbers(predictions, s.topN)

	placed := map[int]int{}
	var placedHorses []int
	payouts, err := s.fetcher.FetchPlacePayouts(ctx, raceID)
	if err != nil {
		s.logPayoutMiss("place", raceID, err)
	}
	for _, p := range payouts {
		placed[p.HorseNumber] = p.PayoutPer100
		placedHorses = append(placedHorses, p.HorseNumber)
	}

	var hits, hitPayouts []int
	total := 0
	for _, horse := range selected {
		if pay, ok := placed[horse]; ok {
			hits = append(hits, horse)
			hitPayouts = append(hitPayouts, pay)
			total += pay
		}
	}

	metrics.SimulatedRacesTotal.WithLabelValues("place").Inc()
	return PlaceRaceResult{
		RaceID:          raceID,
		RaceName:        race.Name,
		Venue:           race.Venue,
		RaceDate:        race.Date,
		TopNPredictions: selected,
		PlacedHorses:    placedHorses,
		Hits:            hits,
		Payouts:         hitPayouts,
		Investment:      Stake * len(selected),
		PayoutTotal:     total,
	}, nil
}

// SimulatePeriod settles every race in the window and builds the summary.
func (s *PlaceSimulator) SimulatePeriod(ctx context.Context, from, to time.Time, venues []string) (PlaceSummary, error) {
	results, err := runPeriod(ctx, s.Base, from, to, venues, "place", s.SimulateRace)
	if err != nil {
		return PlaceSummary{}, err
	}
	return s.buildSummary(from, to, results), nil
}

func (s *PlaceSimulator) buildSummary(from, to time.Time, results []PlaceRaceResult) PlaceSummary {
	summary := PlaceSummary{
		PeriodFrom:  from,
		PeriodTo:    to,
		TotalRaces:  len(results),
		RaceResults: results,
	}
	for _, r := range results {
		summary.TotalBets += len(r.TopNPredictions)
		summary.TotalHits += len(r.Hits)
		summary.TotalInvestment += r.Investment
		summary.TotalPayout += r.PayoutTotal
	}
	if summary.TotalBets > 0 {
		summary.HitRate = float64(summary.TotalHits) / float64(summary.TotalBets)
	}
	summary.ReturnRate = returnRate(summary.TotalPayout, summary.TotalInvestment)
	return summary
}
