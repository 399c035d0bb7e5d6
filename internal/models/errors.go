package models

import "errors"

// Custom errors
var (
	ErrNotFound                 = errors.New("record not found")
	ErrInvalidRaceID            = errors.New("invalid race id")
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrModelNotTrained          = errors.New("model not trained")
	ErrDataLeak                 = errors.New("past results query returned a row at or after the cutoff date")
	ErrPayoutUnavailable        = errors.New("payout unavailable")
	ErrNotYetSettled            = errors.New("race not yet settled")
	ErrRetryExhausted           = errors.New("retry attempts exhausted")
	ErrParseFailed              = errors.New("failed to parse payout page")
)
