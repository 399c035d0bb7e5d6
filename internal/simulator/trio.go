package simulator

import (
	"context"
	"sort"
	"time"

	"github.com/yourusername/keiba-analytics/internal/metrics"
)

// Triple is an unordered three-horse combination, stored ascending.
type Triple [3]int

// NewTriple normalizes a combination to ascending order.
func NewTriple(a, b, c int) Triple {
	nums := []int{a, b, c}
	sort.Ints(nums)
	return Triple{nums[0], nums[1], nums[2]}
}

// TrioRaceResult is one race's trio settlement. ActualTrio is nil when no
// payout data was available.
type TrioRaceResult struct {
	RaceID        string
	RaceName      string
	Venue         string
	RaceDate      time.Time
	PredictedTrio *Triple
	ActualTrio    *Triple
	Hit           bool
	Payout        int
	Investment    int
}

// TrioSummary aggregates a period of trio races.
type TrioSummary struct {
	PeriodFrom      time.Time
	PeriodTo        time.Time
	TotalRaces      int
	TotalHits       int
	HitRate         float64
	TotalInvestment int
	TotalPayout     int
	ReturnRate      float64
	RaceResults     []TrioRaceResult
}

// TrioSimulator bets the single unordered triple of the top-3 predictions
// and hits when it equals the recorded top three.
type TrioSimulator struct {
	*Base
}

// NewTrioSimulator creates a trio simulator over a shared base.
func NewTrioSimulator(base *Base) *TrioSimulator {
	return &TrioSimulator{Base: base}
}

// SimulateRace settles one race.
func (s *TrioSimulator) SimulateRace(ctx context.Context, raceID string) (TrioRaceResult, error) {
	race, predictions, err := s.predictRace(ctx, raceID)
	if err != nil {
		return TrioRaceResult{}, err
	}
	if len(predictions) == 0 {
		return TrioRaceResult{}, errNoPredictions
	}

	result := TrioRaceResult{
		RaceID:   raceID,
		RaceName: race.Name,
		Venue:    race.Venue,
		RaceDate: race.Date,
	}

	top3 := topHorseNumbers(predictions, 3)
	if len(top3) < 3 {
		// A field this small cannot form a trio ticket.
		return result, nil
	}
	predicted := NewTriple(top3[0], top3[1], top3[2])
	result.PredictedTrio = &predicted
	result.Investment = Stake

	trio, err := s.fetcher.FetchTrioPayout(ctx, raceID)
	if err != nil {
		s.logPayoutMiss("trio", raceID, err)
	} else {
		actual := NewTriple(trio.Triple[0], trio.Triple[1], trio.Triple[2])
		result.ActualTrio = &actual
		if predicted == actual {
			result.Hit = true
			result.Payout = trio.PayoutPer100
		}
	}

	metrics.SimulatedRacesTotal.WithLabelValues("trio").Inc()
	return result, nil
}

// SimulatePeriod settles every race in the window and builds the summary.
func (s *TrioSimulator) SimulatePeriod(ctx context.Context, from, to time.Time, venues []string) (TrioSummary, error) {
	results, err := runPeriod(ctx, s.Base, from, to, venues, "trio", s.SimulateRace)
	if err != nil {
		return TrioSummary{}, err
	}
	return s.buildSummary(from, to, results), nil
}

func (s *TrioSimulator) buildSummary(from, to time.Time, results []TrioRaceResult) TrioSummary {
	summary := TrioSummary{
		PeriodFrom:  from,
		PeriodTo:    to,
		TotalRaces:  len(results),
		RaceResults: results,
	}
	for _, r := range results {
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
