package database

import (
	"context"
	"fmt"

	"github.com/yourusername/keiba-analytics/internal/config"
)

// schema holds the minimum DDL the query layer depends on. The scraper
// pipeline owns the full schema; this subset lets tests and fresh
// installations run queries without it.
const schema = `
CREATE TABLE IF NOT EXISTS races (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	date            TIMESTAMP NOT NULL,
	venue           TEXT NOT NULL,
	race_number     INTEGER NOT NULL,
	distance        INTEGER NOT NULL,
	surface         TEXT NOT NULL,
	track_condition TEXT NOT NULL DEFAULT 'unknown',
	grade           TEXT NOT NULL DEFAULT '',
	weather         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS horses (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	sex        TEXT NOT NULL DEFAULT '',
	birth_year INTEGER NOT NULL DEFAULT 0,
	sire       TEXT NOT NULL DEFAULT '',
	dam_sire   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS race_results (
	race_id         TEXT NOT NULL REFERENCES races(id),
	horse_id        TEXT NOT NULL REFERENCES horses(id),
	finish_position INTEGER NOT NULL,
	bracket_number  INTEGER NOT NULL DEFAULT 0,
	horse_number    INTEGER NOT NULL,
	jockey_id       TEXT NOT NULL DEFAULT '',
	jockey_name     TEXT NOT NULL DEFAULT '',
	odds            REAL,
	popularity      INTEGER,
	weight          INTEGER,
	weight_diff     INTEGER,
	time            TEXT NOT NULL DEFAULT '',
	margin          TEXT NOT NULL DEFAULT '',
	last_3f         REAL,
	sex             TEXT NOT NULL DEFAULT '',
	age             INTEGER,
	impost          REAL,
	passing_order   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (race_id, horse_id)
);

CREATE INDEX IF NOT EXISTS idx_race_results_race_id ON race_results(race_id);
CREATE INDEX IF NOT EXISTS idx_race_results_horse_id ON race_results(horse_id);
CREATE INDEX IF NOT EXISTS idx_races_date ON races(date);
`

// Initialize opens the database and ensures the query schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the minimum tables and indexes the queries require
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
