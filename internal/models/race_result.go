package models

import (
	"strconv"
	"strings"
	"time"
)

// RaceResult is one horse's recorded outcome in a race.
// FinishPosition 0 means the horse did not finish.
type RaceResult struct {
	RaceID         string   `db:"race_id"`
	HorseID        string   `db:"horse_id"`
	FinishPosition int      `db:"finish_position"`
	BracketNumber  int      `db:"bracket_number"`
	HorseNumber    int      `db:"horse_number"`
	JockeyID       string   `db:"jockey_id"`
	JockeyName     string   `db:"jockey_name"`
	Odds           *float64 `db:"odds"`
	Popularity     *int     `db:"popularity"`
	Weight         *int     `db:"weight"`
	WeightDiff     *int     `db:"weight_diff"`
	Time           string   `db:"time"`
	Margin         string   `db:"margin"`
	Last3F         *float64 `db:"last_3f"`
	Sex            string   `db:"sex"`
	Age            *int     `db:"age"`
	Impost         *float64 `db:"impost"`
	PassingOrder   string   `db:"passing_order"`
}

// DidNotFinish reports whether the horse failed to finish.
func (r *RaceResult) DidNotFinish() bool {
	return r.FinishPosition == 0
}

// PastResult is the query shape returned by the past-results repository:
// one prior race of one horse, joined with race attributes and the field
// size of that race.
type PastResult struct {
	HorseID        string         `db:"horse_id"`
	RaceID         string         `db:"race_id"`
	RaceDate       time.Time      `db:"race_date"`
	RaceNumber     int            `db:"race_number"`
	Surface        Surface        `db:"surface"`
	Distance       int            `db:"distance"`
	TrackCondition TrackCondition `db:"track_condition"`
	Venue          string         `db:"venue"`
	FinishPosition int            `db:"finish_position"`
	TotalRunners   int            `db:"total_runners"`
	Time           string         `db:"time"`
	Last3F         *float64       `db:"last_3f"`
	Odds           *float64       `db:"odds"`
	Popularity     *int           `db:"popularity"`
	PassingOrder   string         `db:"passing_order"`
}

// FirstCornerPosition parses the leading position out of a passing-order
// string such as "3-3-2-1". The second return is false when the string is
// absent or malformed.
func (p *PastResult) FirstCornerPosition() (int, bool) {
	if p.PassingOrder == "" {
		return 0, false
	}
	head := p.PassingOrder
	if idx := strings.IndexByte(head, '-'); idx >= 0 {
		head = head[:idx]
	}
	pos, err := strconv.Atoi(head)
	if err != nil || pos <= 0 {
		return 0, false
	}
	return pos, true
}

// ParseFinishTime converts a recorded finish time ("1:33.5" or "59.8") to
// seconds. Returns false for empty or malformed values.
func ParseFinishTime(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		minutes, err := strconv.Atoi(s[:idx])
		if err != nil {
			return 0, false
		}
		seconds, err := strconv.ParseFloat(s[idx+1:], 64)
		if err != nil {
			return 0, false
		}
		return float64(minutes)*60 + seconds, true
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return seconds, true
}
