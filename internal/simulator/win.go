package simulator

import (
	"context"
	"time"

	"github.com/yourusername/keiba-analytics/internal/metrics"
)

// WinRaceResult is one race's win-ticket settlement. WinningHorse is nil
// when no payout data was available.
type WinRaceResult struct {
	RaceID          string
	RaceName        string
	Venue           string
	RaceDate        time.Time
	TopNPredictions []int
	WinningHorse    *int
	Hit             bool
	Payout          int
	Investment      int
}

// WinSummary aggregates a period of win-ticket races.
type WinSummary struct {
	PeriodFrom      time.Time
	PeriodTo        time.Time
	TotalRaces      int
	TotalBets       int
	TotalHits       int
	HitRate         float64
	TotalInvestment int
	TotalPayout     int
	ReturnRate      float64
	RaceResults     []WinRaceResult
}

// WinSimulator bets the top-N predicted horses to win. The ticket hits
// when any selected horse finishes first.
type WinSimulator struct {
	*Base
}

// NewWinSimulator creates a win-ticket simulator over a shared base.
func NewWinSimulator(base *Base) *WinSimulator {
	return &WinSimulator{Base: base}
}

// SimulateRace settles one race.
func (s *WinSimulator) SimulateRace(ctx context.Context, raceID string) (WinRaceResult, error) {
	race, predictions, err := s.predictRace(ctx, raceID)
	if err != nil {
		return WinRaceResult{}, err
	}
	if len(predictions) == 0 {
		return WinRaceResult{}, errNoPredictions
	}

	selected := topHorseNumbers(predictions, s.topN)

	result := WinRaceResult{
		RaceID:          raceID,
		RaceName:        race.Name,
		Venue:           race.Venue,
		RaceDate:        race.Date,
		TopNPredictions: selected,
		Investment:      Stake * len(selected),
	}

	win, err := s.fetcher.FetchWinPayout(ctx, raceID)
	if err != nil {
		s.logPayoutMiss("win", raceID, err)
	} else {
		result.WinningHorse = &win.HorseNumber
		for _, horse := range selected {
			if horse == win.HorseNumber {
				result.Hit = true
				result.Payout = win.PayoutPer100
				break
			}
		}
	}

	metrics.SimulatedRacesTotal.WithLabelValues("win").Inc()
	return result, nil
}

// SimulatePeriod settles every race in the window and builds the summary.
func (s *WinSimulator) SimulatePeriod(ctx context.Context, from, to time.Time, venues []string) (WinSummary, error) {
	results, err := runPeriod(ctx, s.Base, from, to, venues, "win", s.SimulateRace)
	if err != nil {
		return WinSummary{}, err
	}
	return s.buildSummary(from, to, results), nil
}

func (s *WinSimulator) buildSummary(from, to time.Time, results []WinRaceResult) WinSummary {
	summary := WinSummary{
		PeriodFrom:  from,
		PeriodTo:    to,
		TotalRaces:  len(results),
		RaceResults: results,
	}
	for _, r := range results {
		summary.TotalBets += len(r.TopNPredictions)
		summary.TotalInvestment += r.Investment
		summary.TotalPayout += r.Payout
		if r.Hit {
			summary.TotalHits++
		}
	}
	if summary.TotalRaces > 0 {
		summary.HitRate = float64(summary.TotalHits) / float64(summary.TotalRaces)
	}
	summary.ReturnRate = returnRate(summary.TotalPayout, summary.TotalInvestment)
	return summary
}
