package backtest

import "sort"

// VariantMetrics holds the evaluation metrics for one prediction variant.
type VariantMetrics struct {
	PrecisionAt1 float64
	PrecisionAt3 float64
	HitRateRank1 float64
	HitRateRank2 float64
	HitRateRank3 float64
}

// Metrics reports the ML-driven and factor-driven variants side by side.
type Metrics struct {
	ML     VariantMetrics
	Factor VariantMetrics
	Races  int
	Horses int
}

// CalculateMetrics computes race-grouped metrics over streamed results.
func CalculateMetrics(results []*RaceBacktestResult) Metrics {
	m := Metrics{Races: len(results)}
	for _, r := range results {
		m.Horses += len(r.Predictions)
	}

	m.ML = VariantMetrics{
		PrecisionAt1: precisionAtK(results, 1, true),
		PrecisionAt3: precisionAtK(results, 3, true),
		HitRateRank1: hitRateByRank(results, 1, true),
		HitRateRank2: hitRateByRank(results, 2, true),
		HitRateRank3: hitRateByRank(results, 3, true),
	}
	m.Factor = VariantMetrics{
		PrecisionAt1: precisionAtK(results, 1, false),
		PrecisionAt3: precisionAtK(results, 3, false),
		HitRateRank1: hitRateByRank(results, 1, false),
		HitRateRank2: hitRateByRank(results, 2, false),
		HitRateRank3: hitRateByRank(results, 3, false),
	}
	return m
}

// precisionAtK averages, over races, the fraction of the top-k predicted
// horses that finished in the top 3. Race-grouped is the only form
// reported here; global precision has no meaning across race boundaries.
func precisionAtK(results []*RaceBacktestResult, k int, useML bool) float64 {
	total := 0.0
	races := 0

	for _, race := range results {
		ranked := rankedPredictions(race.Predictions, useML)
		if len(ranked) == 0 {
			continue
		}
		kk := k
		if kk > len(ranked) {
			kk = len(ranked)
		}
		hits := 0
		for _, p := range ranked[:kk] {
			if p.Hit() {
				hits++
			}
		}
		total += float64(hits) / float64(kk)
		races++
	}

	if races == 0 {
		return 0
	}
	return total / float64(races)
}

// hitRateByRank averages, over races, whether the rank-th predicted horse
// finished in the top 3.
func hitRateByRank(results []*RaceBacktestResult, rank int, useML bool) float64 {
	hits := 0
	races := 0

	for _, race := range results {
		ranked := rankedPredictions(race.Predictions, useML)
		if len(ranked) < rank {
			continue
		}
		races++
		if ranked[rank-1].Hit() {
			hits++
		}
	}

	if races == 0 {
		return 0
	}
	return float64(hits) / float64(races)
}

// rankedPredictions orders a race's predictions by the requested variant.
// The ML variant drops horses with no probability (degraded stretches).
func rankedPredictions(predictions []PredictionOutcome, useML bool) []PredictionOutcome {
	out := make([]PredictionOutcome, 0, len(predictions))
	if useML {
		for _, p := range predictions {
			if p.MLRank != nil {
				out = append(out, p)
			}
		}
		sort.SliceStable(out, func(a, b int) bool { return *out[a].MLRank < *out[b].MLRank })
		return out
	}

	out = append(out, predictions...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].FactorRank < out[b].FactorRank })
	return out
}
