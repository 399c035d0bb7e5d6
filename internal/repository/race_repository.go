package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/models"
)

// SQLiteRaceRepository implements RaceRepository for the SQLite store
type SQLiteRaceRepository struct {
	db *database.DB
}

// NewSQLiteRaceRepository creates a new race repository
func NewSQLiteRaceRepository(db *database.DB) RaceRepository {
	return &SQLiteRaceRepository{db: db}
}

// GetByID retrieves a race by its 12-character identifier
func (r *SQLiteRaceRepository) GetByID(ctx context.Context, raceID string) (*models.Race, error) {
	if err := models.ValidateRaceID(raceID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, date, venue, race_number, distance, surface, track_condition, grade, weather
		FROM races WHERE id = ?
	`

	race := &models.Race{}
	err := r.db.Conn().GetContext(ctx, race, query, raceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}

	return race, nil
}

// GetByDateRange retrieves races in the window ordered by date then race
// number. An empty venue list means all venues.
func (r *SQLiteRaceRepository) GetByDateRange(ctx context.Context, from, to time.Time, venues []string) ([]*models.Race, error) {
	query := `
		SELECT id, name, date, venue, race_number, distance, surface, track_condition, grade, weather
		FROM races
		WHERE date >= ? AND date <= ?
	`
	args := []interface{}{from, to}

	if len(venues) > 0 {
		in, inArgs, err := sqlx.In(" AND venue IN (?)", venues)
		if err != nil {
			return nil, fmt.Errorf("failed to build venue filter: %w", err)
		}
		query += in
		args = append(args, inArgs...)
	}
	query += " ORDER BY date ASC, race_number ASC"

	var races []*models.Race
	if err := r.db.Conn().SelectContext(ctx, &races, r.db.Conn().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query races by date range: %w", err)
	}

	return races, nil
}
