package backtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

func day(offset int) time.Time {
	return time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func seedRace(t *testing.T, db *database.DB, raceID string, date time.Time, raceNumber int, finishes []int) {
	t.Helper()
	_, err := db.Conn().Exec(`
		INSERT INTO races (id, name, date, venue, race_number, distance, surface, track_condition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		raceID, "Race "+raceID, date, "Tokyo", raceNumber, 1600, "turf", "good")
	require.NoError(t, err)

	for i, finish := range finishes {
		horse := fmt.Sprintf("h%02d", i+1)
		_, err := db.Conn().Exec(`INSERT INTO horses (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`, horse, "Horse "+horse)
		require.NoError(t, err)
		_, err = db.Conn().Exec(`
			INSERT INTO race_results (race_id, horse_id, finish_position, horse_number)
			VALUES (?, ?, ?, ?)`, raceID, horse, finish, i+1)
		require.NoError(t, err)
	}
}

func TestFloorKey(t *testing.T) {
	wed := time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC) // Wednesday
	mon := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC) // Monday same ISO week
	sun := time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC) // previous ISO week

	t.Run("daily", func(t *testing.T) {
		assert.NotEqual(t, floorKey(mon, RetrainDaily), floorKey(wed, RetrainDaily))
	})
	t.Run("weekly buckets at monday boundary", func(t *testing.T) {
		assert.Equal(t, floorKey(mon, RetrainWeekly), floorKey(wed, RetrainWeekly))
		assert.NotEqual(t, floorKey(sun, RetrainWeekly), floorKey(wed, RetrainWeekly))
	})
	t.Run("monthly", func(t *testing.T) {
		assert.Equal(t, floorKey(mon, RetrainMonthly), floorKey(sun, RetrainMonthly))
		assert.NotEqual(t,
			floorKey(time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), RetrainMonthly),
			floorKey(mon, RetrainMonthly))
	})
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{StartDate: day(0), EndDate: day(10)}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, RetrainWeekly, cfg.RetrainInterval)
	assert.Equal(t, MinTrainingSamples, cfg.MinTrainingSamples)
	assert.Equal(t, MaxPastResultsPerHorse, cfg.MaxPastResultsPerHorse)

	bad := Config{StartDate: day(10), EndDate: day(0)}
	assert.Error(t, bad.Normalize())

	unknown := Config{StartDate: day(0), EndDate: day(1), RetrainInterval: "hourly"}
	assert.Error(t, unknown.Normalize())
}

func newTestEngine(t *testing.T, db *database.DB, cfg Config) *Engine {
	t.Helper()
	repos, err := repository.NewRepositories(db)
	require.NoError(t, err)
	engine, err := NewEngine(cfg, repos, nil)
	require.NoError(t, err)
	return engine
}

func TestEngineStreamsInOrder(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	// Two races on one day plus later days, inserted out of order.
	seedRace(t, db, "202505010203", day(7), 3, []int{1, 2, 3, 4})
	seedRace(t, db, "202505010101", day(0), 1, []int{2, 1, 3, 4})
	seedRace(t, db, "202505010102", day(0), 2, []int{1, 3, 2, 4})
	seedRace(t, db, "202505010304", day(14), 4, []int{4, 3, 2, 1})

	engine := newTestEngine(t, db, Config{StartDate: day(0), EndDate: day(20), RetrainInterval: RetrainWeekly})

	var got []*RaceBacktestResult
	for result, err := range engine.Run(context.Background()) {
		require.NoError(t, err)
		got = append(got, result)
	}
	require.Len(t, got, 4)

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		assert.True(t, prev.RaceDate.Before(cur.RaceDate) || prev.RaceDate.Equal(cur.RaceDate),
			"dates must be non-decreasing")
	}
	assert.Equal(t, "202505010101", got[0].RaceID)
	assert.Equal(t, "202505010102", got[1].RaceID)
}

func TestEngineDegradesWithoutTrainingData(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	seedRace(t, db, "202505010101", day(0), 1, []int{1, 2, 3, 4, 5})

	engine := newTestEngine(t, db, Config{StartDate: day(0), EndDate: day(1)})

	var results []*RaceBacktestResult
	for result, err := range engine.Run(context.Background()) {
		require.NoError(t, err)
		results = append(results, result)
	}
	require.Len(t, results, 1)

	// Nothing before the race: factor-only predictions, no ML ranks.
	for _, p := range results[0].Predictions {
		assert.Nil(t, p.MLProbability)
		assert.Nil(t, p.MLRank)
		assert.Greater(t, p.FactorRank, 0)
	}
}

func TestEngineMarksUnknownFinish(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	// Second horse did not finish.
	seedRace(t, db, "202505010101", day(0), 1, []int{1, 0, 2})

	engine := newTestEngine(t, db, Config{StartDate: day(0), EndDate: day(1)})

	var results []*RaceBacktestResult
	for result, err := range engine.Run(context.Background()) {
		require.NoError(t, err)
		results = append(results, result)
	}
	require.Len(t, results, 1)

	byNumber := map[int]PredictionOutcome{}
	for _, p := range results[0].Predictions {
		byNumber[p.HorseNumber] = p
	}
	assert.Equal(t, UnknownFinishPosition, byNumber[2].ActualRank)
	assert.Equal(t, 1, byNumber[1].ActualRank)
}

func TestEngineConsumerCanStopEarly(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	for i := 0; i < 5; i++ {
		seedRace(t, db, fmt.Sprintf("2025050101%02d", i+1), day(i), i+1, []int{1, 2, 3})
	}

	engine := newTestEngine(t, db, Config{StartDate: day(0), EndDate: day(10)})

	count := 0
	for _, err := range engine.Run(context.Background()) {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestFactorCache(t *testing.T) {
	fc := NewFactorCache()

	key := fc.key("past_results", "h1", []string{"r1", "r2"}, "")
	_, found := fc.get(key)
	assert.False(t, found)

	v := 42.0
	fc.set(key, &v)
	got, found := fc.get(key)
	require.True(t, found)
	assert.Equal(t, 42.0, *got)

	// Missing scores cache too.
	missKey := fc.key("last_3f", "h1", []string{"r1"}, "")
	fc.set(missKey, nil)
	got, found = fc.get(missKey)
	require.True(t, found)
	assert.Nil(t, got)

	hits, misses, ratio := fc.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 2.0/3.0, ratio, 0.001)

	fc.Clear()
	hits, misses, _ = fc.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestCalculateMetrics(t *testing.T) {
	intPtr := func(v int) *int { return &v }
	floatPtr := func(v float64) *float64 { return &v }

	results := []*RaceBacktestResult{
		{
			RaceID: "a",
			Predictions: []PredictionOutcome{
				{HorseNumber: 1, FactorRank: 1, MLRank: intPtr(1), MLProbability: floatPtr(0.6), ActualRank: 1},
				{HorseNumber: 2, FactorRank: 2, MLRank: intPtr(2), MLProbability: floatPtr(0.3), ActualRank: 5},
				{HorseNumber: 3, FactorRank: 3, MLRank: intPtr(3), MLProbability: floatPtr(0.1), ActualRank: 2},
			},
		},
		{
			RaceID: "b",
			Predictions: []PredictionOutcome{
				{HorseNumber: 1, FactorRank: 2, MLRank: intPtr(1), MLProbability: floatPtr(0.5), ActualRank: 9},
				{HorseNumber: 2, FactorRank: 1, MLRank: intPtr(2), MLProbability: floatPtr(0.4), ActualRank: 1},
			},
		},
	}

	m := CalculateMetrics(results)
	assert.Equal(t, 2, m.Races)
	assert.Equal(t, 5, m.Horses)

	// ML rank-1 picks: race a hits, race b misses.
	assert.InDelta(t, 0.5, m.ML.PrecisionAt1, 0.001)
	assert.InDelta(t, 0.5, m.ML.HitRateRank1, 0.001)
	// Factor rank-1 picks: race a horse 1 (hit), race b horse 2 (hit).
	assert.InDelta(t, 1.0, m.Factor.PrecisionAt1, 0.001)
	// Race a top-3: ranks 1,2,3 -> hits 1 and 3 of 3. Race b top-2: hit 1 of 2.
	assert.InDelta(t, (2.0/3.0+0.5)/2, m.ML.PrecisionAt3, 0.001)
}

func TestReporterRendersMissingAsDash(t *testing.T) {
	reporter := NewReporter(day(0), day(30), RetrainWeekly)

	result := &RaceBacktestResult{
		RaceID:   "202505010101",
		RaceDate: day(0),
		Venue:    "Tokyo",
		RaceName: "Test",
		Predictions: []PredictionOutcome{
			{HorseNumber: 1, HorseName: "NoModel", FactorRank: 1, ActualRank: UnknownFinishPosition},
		},
	}

	detail := reporter.RaceDetail(result, 3)
	assert.Contains(t, detail, "-")
	assert.Contains(t, detail, "NoModel")

	summary := reporter.Summary(CalculateMetrics([]*RaceBacktestResult{result}))
	assert.Contains(t, summary, "Precision@1")
	assert.Contains(t, summary, "Retrain interval:  weekly")
}
