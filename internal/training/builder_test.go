package training

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/feature"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

func day(offset int) time.Time {
	return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func seed(t *testing.T, db *database.DB, raceID string, date time.Time, finishes []int) {
	t.Helper()
	_, err := db.Conn().Exec(`
		INSERT INTO races (id, name, date, venue, race_number, distance, surface, track_condition)
		VALUES (?, ?, ?, 'Tokyo', 1, 1600, 'turf', 'good')`, raceID, "Race", date)
	require.NoError(t, err)
	for i, finish := range finishes {
		horse := raceID + "-h" + string(rune('a'+i))
		_, err := db.Conn().Exec(`INSERT INTO horses (id, name) VALUES (?, 'H') ON CONFLICT(id) DO NOTHING`, horse)
		require.NoError(t, err)
		_, err = db.Conn().Exec(`
			INSERT INTO race_results (race_id, horse_id, finish_position, horse_number)
			VALUES (?, ?, ?, ?)`, raceID, horse, finish, i+1)
		require.NoError(t, err)
	}
}

func TestBuildDataset(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	ctx := context.Background()

	seed(t, db, "202505010101", day(0), []int{1, 2, 4, 0}) // last runner DNF
	seed(t, db, "202505010202", day(7), []int{3, 5})
	seed(t, db, "202505010303", day(30), []int{1, 2}) // beyond cutoff

	repos, err := repository.NewRepositories(db)
	require.NoError(t, err)
	builder, err := NewDataBuilder(repos, nil, 0)
	require.NoError(t, err)

	ds, err := builder.Build(ctx, day(14))
	require.NoError(t, err)

	// Three finishers in race one plus two in race two; DNF excluded,
	// race three is at or after the cutoff.
	require.Len(t, ds.Y, 5)
	require.Len(t, ds.X, 5)
	require.Len(t, ds.Groups, 5)

	for _, row := range ds.X {
		assert.Len(t, row, feature.Size)
	}

	positives := 0
	for _, label := range ds.Y {
		positives += label
	}
	// Top-3 finishes: positions 1 and 2 in race one, 3 in race two.
	assert.Equal(t, 3, positives)

	groups := map[string]bool{}
	for _, g := range ds.Groups {
		groups[g] = true
		assert.NotEqual(t, "202505010303", g)
	}
	assert.Len(t, groups, 2)
}

func TestBuildDatasetEmptyStore(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := repository.NewRepositories(db)
	require.NoError(t, err)
	builder, err := NewDataBuilder(repos, nil, 0)
	require.NoError(t, err)

	ds, err := builder.Build(context.Background(), day(0))
	require.NoError(t, err)
	assert.Empty(t, ds.Y)
}
