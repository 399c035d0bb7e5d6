package repository

import (
	"fmt"

	"github.com/yourusername/keiba-analytics/internal/database"
)

// NewRepositories creates a repository container backed by the SQLite store
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &Repositories{
		Race:       NewSQLiteRaceRepository(db),
		RaceResult: NewSQLiteRaceResultRepository(db),
		Horse:      NewSQLiteHorseRepository(db),
	}, nil
}
