package backtest

import (
	"fmt"
	"strings"
	"time"
)

// Reporter renders backtest results as fixed-column tables.
type Reporter struct {
	startDate       time.Time
	endDate         time.Time
	retrainInterval RetrainInterval
}

// NewReporter creates a reporter for a run window.
func NewReporter(startDate, endDate time.Time, interval RetrainInterval) *Reporter {
	return &Reporter{startDate: startDate, endDate: endDate, retrainInterval: interval}
}

// Summary renders the side-by-side metrics block.
func (r *Reporter) Summary(m Metrics) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Backtest results: %s .. %s\n", r.startDate.Format("2006-01-02"), r.endDate.Format("2006-01-02"))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Races evaluated:   %d\n", m.Races)
	fmt.Fprintf(&b, "Runners evaluated: %d\n", m.Horses)
	fmt.Fprintf(&b, "Retrain interval:  %s\n", r.retrainInterval)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, thin)
	fmt.Fprintf(&b, "%-21s|%12s|%12s|%8s\n", "", "ML", "7-factor", "diff")
	fmt.Fprintln(&b, thin)

	row := func(label string, mlValue, factorValue float64) {
		fmt.Fprintf(&b, "%-21s|%11s |%11s |%8s\n",
			label, formatPercent(mlValue), formatPercent(factorValue), formatDiff(mlValue, factorValue))
	}
	row("Precision@1", m.ML.PrecisionAt1, m.Factor.PrecisionAt1)
	row("Precision@3", m.ML.PrecisionAt3, m.Factor.PrecisionAt3)
	fmt.Fprintln(&b, thin)
	row("Rank-1 hit rate", m.ML.HitRateRank1, m.Factor.HitRateRank1)
	row("Rank-2 hit rate", m.ML.HitRateRank2, m.Factor.HitRateRank2)
	row("Rank-3 hit rate", m.ML.HitRateRank3, m.Factor.HitRateRank3)
	fmt.Fprintln(&b, thin)

	return b.String()
}

// RaceDetail renders one race's top-k predictions against the outcome.
func (r *Reporter) RaceDetail(result *RaceBacktestResult, topK int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s\n", result.RaceDate.Format("2006-01-02"), result.Venue, result.RaceName)
	fmt.Fprintf(&b, "%4s | %-16s | %7s | %4s | %4s | %4s | %4s\n",
		"No.", "Horse", "ML prob", "ML", "FS", "Fin", "Hit")
	fmt.Fprintln(&b, strings.Repeat("-", 70))

	ranked := rankedPredictions(result.Predictions, true)
	if len(ranked) == 0 {
		ranked = rankedPredictions(result.Predictions, false)
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}

	for _, p := range ranked[:topK] {
		hit := ""
		if p.Hit() {
			hit = "HIT"
		}
		prob := "-"
		if p.MLProbability != nil {
			prob = fmt.Sprintf("%.1f%%", *p.MLProbability*100)
		}
		mlRank := "-"
		if p.MLRank != nil {
			mlRank = fmt.Sprintf("%d", *p.MLRank)
		}
		finish := "-"
		if p.ActualRank != UnknownFinishPosition {
			finish = fmt.Sprintf("%d", p.ActualRank)
		}
		fmt.Fprintf(&b, "%4d | %-16s | %7s | %4s | %4d | %4s | %4s\n",
			p.HorseNumber, p.HorseName, prob, mlRank, p.FactorRank, finish, hit)
	}

	return b.String()
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func formatDiff(mlValue, factorValue float64) string {
	diff := (mlValue - factorValue) * 100
	sign := ""
	if diff >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, diff)
}
