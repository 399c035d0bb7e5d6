package models

import "time"

// RaceEntry is one horse in the field of a race about to be predicted.
// Entries are value types and treated as immutable once built.
type RaceEntry struct {
	HorseID       string
	HorseName     string
	HorseNumber   int
	BracketNumber int
	JockeyID      string
	JockeyName    string
	Impost        float64
	Sex           string
	Age           *int

	// Pre-race market data when known. Nil outside live card pages and
	// reconstructed backtest entries.
	Odds       *float64
	Popularity *int
	Weight     *int
	WeightDiff *int
}

// ShutubaData is the full prediction input for one race: the race header
// plus the ordered field of entries.
type ShutubaData struct {
	RaceID         string
	RaceName       string
	RaceNumber     int
	Venue          string
	Distance       int
	Surface        Surface
	TrackCondition TrackCondition
	Date           time.Time
	Entries        []RaceEntry
}
