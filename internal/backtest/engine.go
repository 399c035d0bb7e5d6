package backtest

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-analytics/internal/factor"
	"github.com/yourusername/keiba-analytics/internal/feature"
	"github.com/yourusername/keiba-analytics/internal/logger"
	"github.com/yourusername/keiba-analytics/internal/metrics"
	"github.com/yourusername/keiba-analytics/internal/ml"
	"github.com/yourusername/keiba-analytics/internal/models"
	"github.com/yourusername/keiba-analytics/internal/repository"
	"github.com/yourusername/keiba-analytics/internal/training"
)

// Engine drives the walk-forward loop. Races replay in ascending
// (date, race_number) order; the model used for a race trains only on data
// dated strictly before it.
type Engine struct {
	config     Config
	repos      *repository.Repositories
	aggregator *factor.Aggregator
	calculator *CachedCalculator
	cache      *FactorCache
	builder    *training.DataBuilder
	logger     *logrus.Logger
	trainLog   *logger.TrainingLogger

	model        *ml.Model
	lastTrainKey string
}

// NewEngine creates a backtest engine.
func NewEngine(cfg Config, repos *repository.Repositories, log *logrus.Logger) (*Engine, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	aggregator, err := factor.NewAggregator(nil)
	if err != nil {
		return nil, err
	}

	cache := NewFactorCache()
	calculator := NewCachedCalculator(cache)
	builder, err := training.NewDataBuilder(repos, calculator, cfg.MaxPastResultsPerHorse)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:     cfg,
		repos:      repos,
		aggregator: aggregator,
		calculator: calculator,
		cache:      cache,
		builder:    builder,
		logger:     log,
		trainLog:   logger.NewTrainingLogger(log),
	}, nil
}

// Config returns the backtest configuration.
func (e *Engine) Config() Config {
	return e.config
}

// FactorCacheStats exposes the factor cache statistics.
func (e *Engine) FactorCacheStats() (hits, misses uint64, ratio float64) {
	return e.cache.Stats()
}

// Run returns the lazy walk-forward sequence. Each race yields one result;
// per-race failures yield the error and continue. The consumer may stop at
// any point by breaking out of the range loop.
func (e *Engine) Run(ctx context.Context) iter.Seq2[*RaceBacktestResult, error] {
	return func(yield func(*RaceBacktestResult, error) bool) {
		races, err := e.repos.Race.GetByDateRange(ctx, e.config.StartDate, e.config.EndDate, e.config.Venues)
		if err != nil {
			yield(nil, fmt.Errorf("failed to load races: %w", err))
			return
		}

		for _, race := range races {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}

			if key := floorKey(race.Date, e.config.RetrainInterval); key != e.lastTrainKey {
				e.retrain(ctx, race.Date)
				e.lastTrainKey = key
			}

			result, err := e.evaluateRace(ctx, race)
			if err != nil {
				e.logger.WithFields(logrus.Fields{
					"race_id": race.ID,
					"error":   err,
				}).Warn("Race evaluation failed, continuing")
				if !yield(nil, err) {
					return
				}
				continue
			}

			metrics.BacktestRacesTotal.Inc()
			if !yield(result, nil) {
				return
			}
		}
	}
}

// retrain fits a fresh model on everything dated strictly before cutoff.
// With too little data the engine drops the model and degrades to
// factor-only predictions until the next cadence boundary.
func (e *Engine) retrain(ctx context.Context, cutoff time.Time) {
	e.cache.Clear()
	start := time.Now()

	ds, err := e.builder.Build(ctx, cutoff)
	if err != nil {
		e.logger.WithError(err).Warn("Training data build failed, dropping model")
		metrics.RetrainsTotal.WithLabelValues("error").Inc()
		e.model = nil
		return
	}

	if len(ds.Y) < e.config.MinTrainingSamples {
		e.trainLog.LogTrainingSkipped(len(ds.Y), e.config.MinTrainingSamples, cutoff)
		metrics.RetrainsTotal.WithLabelValues("degraded").Inc()
		e.model = nil
		return
	}

	trainer := ml.NewTrainer(e.config.LightweightTraining, e.logger)
	model, err := trainer.Train(ds.X, ds.Y, feature.Names())
	if err != nil {
		e.logger.WithError(err).Warn("Model training failed, dropping model")
		metrics.RetrainsTotal.WithLabelValues("error").Inc()
		e.model = nil
		return
	}

	e.model = model
	metrics.RetrainsTotal.WithLabelValues("ok").Inc()
	metrics.TrainingSamples.Set(float64(len(ds.Y)))
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	e.trainLog.LogTrainingCompleted(len(ds.Y), time.Since(start), nil, e.config.LightweightTraining)
}

type raceHorseData struct {
	pastResults map[string][]models.PastResult
	horses      map[string]*models.Horse
}

// fetchHorseData batches the two master lookups for a race: every horse's
// history before the race date, and the horse rows themselves. One query
// each, never per horse.
func (e *Engine) fetchHorseData(ctx context.Context, results []*models.RaceResult, raceDate time.Time) (*raceHorseData, error) {
	horseIDs := make([]string, 0, len(results))
	for _, r := range results {
		horseIDs = append(horseIDs, r.HorseID)
	}

	past, err := e.repos.RaceResult.GetPastResultsBatch(ctx, horseIDs, raceDate, e.config.MaxPastResultsPerHorse)
	if err != nil {
		return nil, fmt.Errorf("failed to batch past results: %w", err)
	}
	horses, err := e.repos.Horse.GetBatch(ctx, horseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to batch horses: %w", err)
	}

	return &raceHorseData{pastResults: past, horses: horses}, nil
}

func (e *Engine) factorContext(race *models.Race, result *models.RaceResult, horse *models.Horse) factor.Context {
	fctx := factor.Context{
		Surface:        race.Surface,
		Distance:       race.Distance,
		TrackCondition: race.TrackCondition,
		Venue:          race.Venue,
		Odds:           result.Odds,
		Popularity:     result.Popularity,
	}
	if horse != nil {
		fctx.Sire = horse.Sire
		fctx.DamSire = horse.DamSire
	}
	return fctx
}

// evaluateRace predicts one race field without its outcome, then joins the
// recorded finishes for evaluation.
func (e *Engine) evaluateRace(ctx context.Context, race *models.Race) (*RaceBacktestResult, error) {
	results, err := e.repos.RaceResult.GetByRaceID(ctx, race.ID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("race %s has no result rows", race.ID)
	}

	horseData, err := e.fetchHorseData(ctx, results, race.Date)
	if err != nil {
		return nil, err
	}

	fieldSize := len(results)
	outcomes := make([]PredictionOutcome, 0, fieldSize)
	var vectors [][]float64

	for _, result := range results {
		past := horseData.pastResults[result.HorseID]
		horse := horseData.horses[result.HorseID]
		fctx := e.factorContext(race, result, horse)
		fctx.FieldSize = fieldSize
		scores := e.calculator.CalculateAll(result.HorseID, past, fctx)

		var total *float64
		if t, ok := e.aggregator.Total(scores); ok {
			total = &t
		}

		actual := result.FinishPosition
		if actual <= 0 {
			actual = UnknownFinishPosition
		}
		name := ""
		if horse != nil {
			name = horse.Name
		}
		outcomes = append(outcomes, PredictionOutcome{
			HorseNumber: result.HorseNumber,
			HorseName:   name,
			HorseID:     result.HorseID,
			TotalScore:  total,
			ActualRank:  actual,
		})

		if e.model != nil {
			vectors = append(vectors, feature.Build(scores, rawInputFromResult(result, fieldSize), feature.ComputePastStats(past, race.Date)))
		}
	}

	if e.model != nil {
		probs, err := e.model.PredictBatch(vectors)
		if err != nil {
			return nil, err
		}
		for i := range outcomes {
			p := probs[i]
			outcomes[i].MLProbability = &p
		}
	}

	rankByFactorScore(outcomes)
	rankByMLProbability(outcomes)

	return &RaceBacktestResult{
		RaceID:      race.ID,
		RaceDate:    race.Date,
		RaceName:    race.Name,
		Venue:       race.Venue,
		Predictions: outcomes,
	}, nil
}

// rawInputFromResult maps a recorded result row to the current-race raw
// features. Only pre-race attributes are read; the finish itself never
// enters the vector.
func rawInputFromResult(result *models.RaceResult, fieldSize int) feature.RawInput {
	return feature.RawInput{
		Odds:        result.Odds,
		Popularity:  result.Popularity,
		Weight:      result.Weight,
		WeightDiff:  result.WeightDiff,
		Age:         result.Age,
		Impost:      result.Impost,
		HorseNumber: result.HorseNumber,
		FieldSize:   fieldSize,
	}
}

func rankByFactorScore(outcomes []PredictionOutcome) {
	order := make([]int, len(outcomes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		av, bv := 0.0, 0.0
		if outcomes[order[a]].TotalScore != nil {
			av = *outcomes[order[a]].TotalScore
		}
		if outcomes[order[b]].TotalScore != nil {
			bv = *outcomes[order[b]].TotalScore
		}
		return av > bv
	})
	for rank, idx := range order {
		outcomes[idx].FactorRank = rank + 1
	}
}

func rankByMLProbability(outcomes []PredictionOutcome) {
	var valid []int
	for i := range outcomes {
		if outcomes[i].MLProbability != nil {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return
	}
	sort.SliceStable(valid, func(a, b int) bool {
		return *outcomes[valid[a]].MLProbability > *outcomes[valid[b]].MLProbability
	})
	for rank, idx := range valid {
		r := rank + 1
		outcomes[idx].MLRank = &r
	}
}
