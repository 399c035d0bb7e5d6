package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-analytics/internal/factor"
	"github.com/yourusername/keiba-analytics/internal/models"
)

func TestNamesContract(t *testing.T) {
	names := Names()
	require.Len(t, names, Size)

	// Factor slots lead in canonical order.
	for i, f := range factor.Names {
		assert.Equal(t, f+"_score", names[i])
	}
	assert.Equal(t, "odds", names[7])
	assert.Equal(t, "days_since_last_race", names[18])
}

func TestBuildEncodesMissingAsSentinel(t *testing.T) {
	scores := map[string]*float64{}
	for _, name := range factor.Names {
		scores[name] = nil
	}

	v := Build(scores, RawInput{HorseNumber: 5, FieldSize: 16}, PastStats{})
	require.Len(t, v, Size)

	for i := 0; i < 7; i++ {
		assert.Equal(t, MissingValue, v[i])
	}
	assert.Equal(t, MissingValue, v[7]) // odds
	assert.Equal(t, 5.0, v[13])         // horse number
	assert.Equal(t, 16.0, v[14])        // field size
	assert.Equal(t, MissingValue, v[18])
}

func TestBuildCarriesValues(t *testing.T) {
	s := 75.5
	scores := map[string]*float64{factor.NamePastResults: &s}
	odds := 4.2
	age := 4
	winRate := 0.25

	v := Build(scores, RawInput{Odds: &odds, Age: &age, HorseNumber: 1, FieldSize: 10}, PastStats{WinRate: &winRate})
	assert.Equal(t, 75.5, v[0])
	assert.Equal(t, 4.2, v[7])
	assert.Equal(t, 4.0, v[11])
	assert.Equal(t, 0.25, v[15])
}

func TestComputePastStats(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	past := []models.PastResult{
		{FinishPosition: 1, RaceDate: now.AddDate(0, 0, -14)},
		{FinishPosition: 3, RaceDate: now.AddDate(0, 0, -60)},
		{FinishPosition: 0, RaceDate: now.AddDate(0, 0, -90)},
		{FinishPosition: 8, RaceDate: now.AddDate(0, 0, -120)},
	}

	stats := ComputePastStats(past, now)
	require.NotNil(t, stats.WinRate)
	assert.InDelta(t, 0.25, *stats.WinRate, 0.001)
	require.NotNil(t, stats.Top3Rate)
	assert.InDelta(t, 0.5, *stats.Top3Rate, 0.001)
	require.NotNil(t, stats.AvgFinishPosition)
	assert.InDelta(t, 4.0, *stats.AvgFinishPosition, 0.001) // DNF excluded
	require.NotNil(t, stats.DaysSinceLastRace)
	assert.Equal(t, 14, *stats.DaysSinceLastRace)
}

func TestComputePastStatsEmpty(t *testing.T) {
	stats := ComputePastStats(nil, time.Now())
	assert.Nil(t, stats.WinRate)
	assert.Nil(t, stats.Top3Rate)
	assert.Nil(t, stats.AvgFinishPosition)
	assert.Nil(t, stats.DaysSinceLastRace)
}
