// Package backtest implements the walk-forward evaluation loop: races are
// replayed in time order, the model retrains on a configurable cadence with
// a cutoff strictly before each race, and per-race results stream to the
// consumer.
package backtest

import (
	"fmt"
	"time"
)

// RetrainInterval is the cadence at which retraining becomes eligible.
type RetrainInterval string

const (
	RetrainDaily   RetrainInterval = "daily"
	RetrainWeekly  RetrainInterval = "weekly"
	RetrainMonthly RetrainInterval = "monthly"
)

// Engine constants.
const (
	// MinTrainingSamples is the default floor below which retraining is
	// skipped and the engine degrades to factor-only predictions.
	MinTrainingSamples = 100
	// MaxPastResultsPerHorse caps each horse's history per lookup.
	MaxPastResultsPerHorse = 20
	// UnknownFinishPosition orders horses with no recorded finish last.
	// It never reaches feature or label construction.
	UnknownFinishPosition = 99
)

// Config configures a walk-forward run.
type Config struct {
	StartDate              time.Time
	EndDate                time.Time
	RetrainInterval        RetrainInterval
	MinTrainingSamples     int
	MaxPastResultsPerHorse int
	LightweightTraining    bool
	Venues                 []string
}

// Normalize fills zero values with defaults and validates the window.
func (c *Config) Normalize() error {
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("end date %s is before start date %s",
			c.EndDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}
	switch c.RetrainInterval {
	case RetrainDaily, RetrainWeekly, RetrainMonthly:
	case "":
		c.RetrainInterval = RetrainWeekly
	default:
		return fmt.Errorf("unknown retrain interval %q", c.RetrainInterval)
	}
	if c.MinTrainingSamples <= 0 {
		c.MinTrainingSamples = MinTrainingSamples
	}
	if c.MaxPastResultsPerHorse <= 0 {
		c.MaxPastResultsPerHorse = MaxPastResultsPerHorse
	}
	return nil
}

// floorKey collapses a date to its cadence bucket. Retraining triggers when
// the key of the current race differs from the key of the last training.
func floorKey(d time.Time, interval RetrainInterval) string {
	switch interval {
	case RetrainDaily:
		return d.Format("2006-01-02")
	case RetrainMonthly:
		return d.Format("2006-01")
	default:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
}
