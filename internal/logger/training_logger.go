// Package logger provides training-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// TrainingLogger provides dedicated logging for model training runs.
type TrainingLogger struct {
	*logrus.Entry
}

// NewTrainingLogger creates a new training logger.
func NewTrainingLogger(baseLogger *logrus.Logger) *TrainingLogger {
	return &TrainingLogger{
		Entry: baseLogger.WithField("component", "training"),
	}
}

// LogTrainingCompleted logs one completed training round.
func (tl *TrainingLogger) LogTrainingCompleted(samples int, duration time.Duration, metrics map[string]float64, lightweight bool) {
	tl.WithFields(logrus.Fields{
		"samples":     samples,
		"duration_ms": duration.Milliseconds(),
		"metrics":     metrics,
		"lightweight": lightweight,
	}).Info("Model training completed")
}

// LogTrainingSkipped logs a retrain attempt that was skipped for lack of data.
func (tl *TrainingLogger) LogTrainingSkipped(samples, required int, cutoff time.Time) {
	tl.WithFields(logrus.Fields{
		"samples":  samples,
		"required": required,
		"cutoff":   cutoff.Format("2006-01-02"),
	}).Warn("Model training skipped, continuing with factor-only predictions")
}
