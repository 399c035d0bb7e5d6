package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/models"
)

func seedRace(t *testing.T, db *database.DB, raceID string, date time.Time, raceNumber int, finishes map[string]int) {
	t.Helper()
	_, err := db.Conn().Exec(`
		INSERT INTO races (id, name, date, venue, race_number, distance, surface, track_condition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		raceID, "Race "+raceID, date, "Tokyo", raceNumber, 2000, "turf", "good")
	require.NoError(t, err)

	number := 1
	for horseID, finish := range finishes {
		_, err := db.Conn().Exec(`
			INSERT INTO horses (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO NOTHING`, horseID, "Horse "+horseID)
		require.NoError(t, err)
		_, err = db.Conn().Exec(`
			INSERT INTO race_results (race_id, horse_id, finish_position, horse_number, time, passing_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			raceID, horseID, finish, number, "2:00.0", "1-1-1-1")
		require.NoError(t, err)
		number++
	}
}

func day(offset int) time.Time {
	return time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestGetPastResultsBatch(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	ctx := context.Background()

	seedRace(t, db, "202505010101", day(-30), 1, map[string]int{"h1": 1, "h2": 5})
	seedRace(t, db, "202505010202", day(-20), 2, map[string]int{"h1": 3, "h2": 2})
	seedRace(t, db, "202505010303", day(-10), 3, map[string]int{"h1": 2})
	seedRace(t, db, "202505010404", day(0), 4, map[string]int{"h1": 1, "h2": 1})

	repo := NewSQLiteRaceResultRepository(db)

	t.Run("excludes rows at and after cutoff", func(t *testing.T) {
		batch, err := repo.GetPastResultsBatch(ctx, []string{"h1", "h2"}, day(0), 20)
		require.NoError(t, err)

		require.Len(t, batch["h1"], 3)
		require.Len(t, batch["h2"], 2)
		for _, rows := range batch {
			for _, r := range rows {
				assert.True(t, r.RaceDate.Before(day(0)))
			}
		}
	})

	t.Run("most recent first", func(t *testing.T) {
		batch, err := repo.GetPastResultsBatch(ctx, []string{"h1"}, day(0), 20)
		require.NoError(t, err)
		rows := batch["h1"]
		for i := 1; i < len(rows); i++ {
			assert.True(t, !rows[i].RaceDate.After(rows[i-1].RaceDate))
		}
		assert.Equal(t, "202505010303", rows[0].RaceID)
	})

	t.Run("per-horse limit applies", func(t *testing.T) {
		batch, err := repo.GetPastResultsBatch(ctx, []string{"h1"}, day(0), 2)
		require.NoError(t, err)
		require.Len(t, batch["h1"], 2)
		assert.Equal(t, "202505010303", batch["h1"][0].RaceID)
	})

	t.Run("field size joined per past race", func(t *testing.T) {
		batch, err := repo.GetPastResultsBatch(ctx, []string{"h1"}, day(0), 20)
		require.NoError(t, err)
		byRace := map[string]int{}
		for _, r := range batch["h1"] {
			byRace[r.RaceID] = r.TotalRunners
		}
		assert.Equal(t, 2, byRace["202505010101"])
		assert.Equal(t, 1, byRace["202505010303"])
	})

	t.Run("unknown horses map to empty", func(t *testing.T) {
		batch, err := repo.GetPastResultsBatch(ctx, []string{"ghost"}, day(0), 20)
		require.NoError(t, err)
		assert.Empty(t, batch["ghost"])
	})

	t.Run("empty id list is a no-op", func(t *testing.T) {
		batch, err := repo.GetPastResultsBatch(ctx, nil, day(0), 20)
		require.NoError(t, err)
		assert.Empty(t, batch)
	})
}

func TestGetPastResultsSingleHorse(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	ctx := context.Background()

	seedRace(t, db, "202505010101", day(-5), 1, map[string]int{"h1": 1})

	repo := NewSQLiteRaceResultRepository(db)
	rows, err := repo.GetPastResults(ctx, "h1", day(0), 20)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].FinishPosition)
}

func TestRaceRepository(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedRace(t, db, fmt.Sprintf("2025050101%02d", i+1), day(i), i+1, map[string]int{fmt.Sprintf("x%d", i): 1})
	}

	repo := NewSQLiteRaceRepository(db)

	t.Run("get by id", func(t *testing.T) {
		race, err := repo.GetByID(ctx, "202505010101")
		require.NoError(t, err)
		assert.Equal(t, "Tokyo", race.Venue)
		assert.Equal(t, models.SurfaceTurf, race.Surface)
	})

	t.Run("invalid id rejected at boundary", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "short")
		assert.ErrorIs(t, err, models.ErrInvalidRaceID)
	})

	t.Run("missing race", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "202505019901")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("window scan ordered", func(t *testing.T) {
		races, err := repo.GetByDateRange(ctx, day(0), day(2), nil)
		require.NoError(t, err)
		require.Len(t, races, 3)
		for i := 1; i < len(races); i++ {
			assert.True(t, !races[i].Date.Before(races[i-1].Date))
		}
	})

	t.Run("venue filter", func(t *testing.T) {
		races, err := repo.GetByDateRange(ctx, day(0), day(2), []string{"Nakayama"})
		require.NoError(t, err)
		assert.Empty(t, races)
	})
}

func TestHorseRepositoryBatch(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	ctx := context.Background()

	_, err := db.Conn().Exec(`INSERT INTO horses (id, name, sire, dam_sire) VALUES ('h1', 'Alpha', 'ディープインパクト', 'ストームキャット')`)
	require.NoError(t, err)

	repo := NewSQLiteHorseRepository(db)
	horses, err := repo.GetBatch(ctx, []string{"h1", "missing"})
	require.NoError(t, err)
	require.Len(t, horses, 1)
	assert.Equal(t, "Alpha", horses["h1"].Name)
	assert.Equal(t, "ディープインパクト", horses["h1"].Sire)
	_, ok := horses["missing"]
	assert.False(t, ok)
}
