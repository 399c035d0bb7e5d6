package prediction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-analytics/internal/models"
)

type fakePastResults struct {
	results map[string][]models.PastResult
	cutoffs []time.Time
}

func (f *fakePastResults) GetPastResults(_ context.Context, horseID string, beforeDate time.Time, _ int) ([]models.PastResult, error) {
	f.cutoffs = append(f.cutoffs, beforeDate)
	return f.results[horseID], nil
}

type fakeHorses struct {
	horses map[string]*models.Horse
}

func (f *fakeHorses) GetBatch(_ context.Context, ids []string) (map[string]*models.Horse, error) {
	out := map[string]*models.Horse{}
	for _, id := range ids {
		if h, ok := f.horses[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func raceDate() time.Time {
	return time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)
}

func history(horseID string, finishes ...int) []models.PastResult {
	out := make([]models.PastResult, 0, len(finishes))
	for i, finish := range finishes {
		out = append(out, models.PastResult{
			HorseID:        horseID,
			RaceID:         "202505010101",
			RaceDate:       raceDate().AddDate(0, 0, -30*(i+1)),
			Surface:        models.SurfaceTurf,
			Distance:       2000,
			FinishPosition: finish,
			TotalRunners:   10,
		})
	}
	return out
}

func shutubaWith(entries ...models.RaceEntry) models.ShutubaData {
	return models.ShutubaData{
		RaceID:         "202505021211",
		RaceName:       "テスト記念",
		RaceNumber:     11,
		Venue:          "Tokyo",
		Distance:       2000,
		Surface:        models.SurfaceTurf,
		TrackCondition: models.TrackGood,
		Date:           raceDate(),
		Entries:        entries,
	}
}

func TestPredictRaceRanksByFactorScores(t *testing.T) {
	repo := &fakePastResults{results: map[string][]models.PastResult{
		"strong": history("strong", 1, 1, 2),
		"weak":   history("weak", 9, 10, 8),
	}}

	service, err := NewService(repo, &fakeHorses{}, nil, nil)
	require.NoError(t, err)

	predictions, err := service.PredictRace(context.Background(), shutubaWith(
		models.RaceEntry{HorseID: "weak", HorseName: "Weak", HorseNumber: 1, Impost: 55},
		models.RaceEntry{HorseID: "strong", HorseName: "Strong", HorseNumber: 2, Impost: 55},
	))
	require.NoError(t, err)
	require.Len(t, predictions, 2)

	assert.Equal(t, "strong", predictions[0].HorseID)
	assert.Equal(t, 1, predictions[0].Rank)
	assert.Equal(t, 2, predictions[1].Rank)

	// No model: combined score degrades to the factor total.
	require.NotNil(t, predictions[0].CombinedScore)
	require.NotNil(t, predictions[0].TotalScore)
	assert.InDelta(t, *predictions[0].TotalScore, *predictions[0].CombinedScore, 0.001)
}

func TestPredictRaceUsesRaceDateAsCutoff(t *testing.T) {
	repo := &fakePastResults{results: map[string][]models.PastResult{}}
	service, err := NewService(repo, nil, nil, nil)
	require.NoError(t, err)

	_, err = service.PredictRace(context.Background(), shutubaWith(
		models.RaceEntry{HorseID: "h1", HorseNumber: 1},
	))
	require.NoError(t, err)
	require.Len(t, repo.cutoffs, 1)
	assert.True(t, repo.cutoffs[0].Equal(raceDate()))
}

func TestPredictRaceEmptyHistoryStillRanks(t *testing.T) {
	repo := &fakePastResults{results: map[string][]models.PastResult{}}
	service, err := NewService(repo, nil, nil, nil)
	require.NoError(t, err)

	predictions, err := service.PredictRace(context.Background(), shutubaWith(
		models.RaceEntry{HorseID: "h1", HorseNumber: 3},
		models.RaceEntry{HorseID: "h2", HorseNumber: 1},
	))
	require.NoError(t, err)
	require.Len(t, predictions, 2)

	// All factors missing: no totals, ties resolve by lower horse number.
	assert.Nil(t, predictions[0].TotalScore)
	assert.Equal(t, 1, predictions[0].HorseNumber)
	assert.Equal(t, 3, predictions[1].HorseNumber)
}

func TestPredictRaceSkipsDebut(t *testing.T) {
	service, err := NewService(&fakePastResults{}, nil, nil, nil)
	require.NoError(t, err)

	shutuba := shutubaWith(models.RaceEntry{HorseID: "h1", HorseNumber: 1})
	shutuba.RaceName = "2歳新馬"
	predictions, err := service.PredictRace(context.Background(), shutuba)
	require.NoError(t, err)
	assert.Empty(t, predictions)
}

func TestIsDebutRace(t *testing.T) {
	assert.True(t, IsDebutRace("2歳新馬"))
	assert.True(t, IsDebutRace("メイクデビュー東京"))
	assert.False(t, IsDebutRace("有馬記念"))
}

func TestCombinedScore(t *testing.T) {
	total := 64.0

	t.Run("geometric mean", func(t *testing.T) {
		// normalized = 0.2/0.4*100 = 50; sqrt(50*64) ~ 56.57
		got := combinedScore(0.2, 0.4, &total)
		require.NotNil(t, got)
		assert.InDelta(t, 56.568, *got, 0.01)
	})

	t.Run("no model degrades to total", func(t *testing.T) {
		got := combinedScore(0, 0, &total)
		require.NotNil(t, got)
		assert.Equal(t, 64.0, *got)
	})

	t.Run("missing total is missing", func(t *testing.T) {
		assert.Nil(t, combinedScore(0.5, 0.5, nil))
	})
}

func TestTieBreaking(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	a := models.PredictionResult{HorseNumber: 7, MLProbability: 0.5, CombinedScore: score(80)}
	b := models.PredictionResult{HorseNumber: 2, MLProbability: 0.5, CombinedScore: score(80)}
	c := models.PredictionResult{HorseNumber: 1, MLProbability: 0.6, CombinedScore: score(80)}

	// Equal combined, equal probability: lower horse number first.
	assert.True(t, lessByCombined(b, a))
	// Equal combined: higher probability first.
	assert.True(t, lessByCombined(c, b))
	// Present combined sorts before missing.
	missing := models.PredictionResult{HorseNumber: 1, MLProbability: 0.9}
	assert.True(t, lessByCombined(a, missing))
}
