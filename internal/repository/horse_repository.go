package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yourusername/keiba-analytics/internal/database"
	"github.com/yourusername/keiba-analytics/internal/models"
)

// SQLiteHorseRepository implements HorseRepository for the SQLite store
type SQLiteHorseRepository struct {
	db *database.DB
}

// NewSQLiteHorseRepository creates a new horse repository
func NewSQLiteHorseRepository(db *database.DB) HorseRepository {
	return &SQLiteHorseRepository{db: db}
}

// GetBatch retrieves horse master rows for the given IDs in one query.
// Unknown IDs are simply absent from the returned map.
func (r *SQLiteHorseRepository) GetBatch(ctx context.Context, horseIDs []string) (map[string]*models.Horse, error) {
	out := make(map[string]*models.Horse, len(horseIDs))
	if len(horseIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, name, sex, birth_year, sire, dam_sire
		FROM horses WHERE id IN (?)
	`, horseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build horse batch query: %w", err)
	}

	var horses []*models.Horse
	if err := r.db.Conn().SelectContext(ctx, &horses, r.db.Conn().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query horses: %w", err)
	}

	for _, h := range horses {
		out[h.ID] = h
	}
	return out, nil
}
