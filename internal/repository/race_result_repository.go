package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/models"
)

const errScanResult = "failed to scan race result: %w"

// pastResultsQuery joins results with race attributes and the field size of
// each past race, keeping only rows strictly before the cutoff. Window
// numbering caps each horse at the per-horse limit in a single round trip.
const pastResultsQuery = `
	SELECT horse_id, race_id, race_date, race_number, surface, distance,
	       track_condition, venue, finish_position, total_runners, time,
	       last_3f, odds, popularity, passing_order
	FROM (
		SELECT rr.horse_id         AS horse_id,
		       rr.race_id          AS race_id,
		       r.date              AS race_date,
		       r.race_number       AS race_number,
		       r.surface           AS surface,
		       r.distance          AS distance,
		       r.track_condition   AS track_condition,
		       r.venue             AS venue,
		       rr.finish_position  AS finish_position,
		       fs.total_runners    AS total_runners,
		       rr.time             AS time,
		       rr.last_3f          AS last_3f,
		       rr.odds             AS odds,
		       rr.popularity       AS popularity,
		       rr.passing_order    AS passing_order,
		       ROW_NUMBER() OVER (
		           PARTITION BY rr.horse_id
		           ORDER BY r.date DESC, r.race_number DESC
		       ) AS rn
		FROM race_results rr
		JOIN races r ON r.id = rr.race_id
		JOIN (
			SELECT race_id, COUNT(*) AS total_runners
			FROM race_results
			GROUP BY race_id
		) fs ON fs.race_id = rr.race_id
		WHERE rr.horse_id IN (?) AND r.date < ?
	)
	WHERE rn <= ?
	ORDER BY horse_id, race_date DESC, race_number DESC
`

// SQLiteRaceResultRepository implements RaceResultRepository for the SQLite store
type SQLiteRaceResultRepository struct {
	db *database.DB
}

// NewSQLiteRaceResultRepository creates a new race result repository
func NewSQLiteRaceResultRepository(db *database.DB) RaceResultRepository {
	return &SQLiteRaceResultRepository{db: db}
}

// GetByRaceID retrieves all result rows of one race
func (r *SQLiteRaceResultRepository) GetByRaceID(ctx context.Context, raceID string) ([]*models.RaceResult, error) {
	query := `
		SELECT race_id, horse_id, finish_position, bracket_number, horse_number,
		       jockey_id, jockey_name, odds, popularity, weight, weight_diff,
		       time, margin, last_3f, sex, age, impost, passing_order
		FROM race_results
		WHERE race_id = ?
		ORDER BY horse_number ASC
	`

	var results []*models.RaceResult
	if err := r.db.Conn().SelectContext(ctx, &results, query, raceID); err != nil {
		return nil, fmt.Errorf(errScanResult, err)
	}
	return results, nil
}

// GetPastResults retrieves one horse's results strictly before the cutoff,
// most recent first.
func (r *SQLiteRaceResultRepository) GetPastResults(ctx context.Context, horseID string, beforeDate time.Time, limit int) ([]models.PastResult, error) {
	batch, err := r.GetPastResultsBatch(ctx, []string{horseID}, beforeDate, limit)
	if err != nil {
		return nil, err
	}
	return batch[horseID], nil
}

// GetPastResultsBatch retrieves past results for many horses in one query.
// Every returned row is verified against the cutoff; a violation is a
// programmer error and fails fast.
func (r *SQLiteRaceResultRepository) GetPastResultsBatch(ctx context.Context, horseIDs []string, beforeDate time.Time, perHorseLimit int) (map[string][]models.PastResult, error) {
	out := make(map[string][]models.PastResult, len(horseIDs))
	for _, id := range horseIDs {
		out[id] = nil
	}
	if len(horseIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(pastResultsQuery, horseIDs, beforeDate, perHorseLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build past results query: %w", err)
	}

	var rows []models.PastResult
	if err := r.db.Conn().SelectContext(ctx, &rows, r.db.Conn().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf(errScanResult, err)
	}

	for _, row := range rows {
		if !row.RaceDate.Before(beforeDate) {
			return nil, fmt.Errorf("%w: horse %s race %s dated %s, cutoff %s",
				models.ErrDataLeak, row.HorseID, row.RaceID,
				row.RaceDate.Format("2006-01-02"), beforeDate.Format("2006-01-02"))
		}
		out[row.HorseID] = append(out[row.HorseID], row)
	}

	return out, nil
}
