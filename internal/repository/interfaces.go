// Package repository provides read-only query contracts over the local store.
package repository

import (
	"context"
	"time"

	"github.com/yourusername/keiba-analytics/internal/models"
)

// PastResultsSource is the single capability the prediction pipeline needs:
// a leak-free fetch of a horse's results strictly before a cutoff date,
// most recent first. Test doubles implement this without touching SQL.
type PastResultsSource interface {
	GetPastResults(ctx context.Context, horseID string, beforeDate time.Time, limit int) ([]models.PastResult, error)
}

// RaceRepository reads race header rows.
type RaceRepository interface {
	GetByID(ctx context.Context, raceID string) (*models.Race, error)
	GetByDateRange(ctx context.Context, from, to time.Time, venues []string) ([]*models.Race, error)
}

// RaceResultRepository reads result rows and the batched past-results view.
type RaceResultRepository interface {
	PastResultsSource
	GetByRaceID(ctx context.Context, raceID string) ([]*models.RaceResult, error)
	GetPastResultsBatch(ctx context.Context, horseIDs []string, beforeDate time.Time, perHorseLimit int) (map[string][]models.PastResult, error)
}

// HorseRepository reads horse master rows.
type HorseRepository interface {
	GetBatch(ctx context.Context, horseIDs []string) (map[string]*models.Horse, error)
}

// Repositories bundles the query contracts over one database handle.
type Repositories struct {
	Race       RaceRepository
	RaceResult RaceResultRepository
	Horse      HorseRepository
}
