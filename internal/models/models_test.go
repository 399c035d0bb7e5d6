package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRaceID(t *testing.T) {
	tests := []struct {
		name    string
		raceID  string
		wantErr bool
	}{
		{"valid tokyo race", "202505021211", false},
		{"valid kokura race", "202610010801", false},
		{"too short", "2025050212", true},
		{"too long", "2025050212111", true},
		{"non digit", "2025a5021211", true},
		{"unknown venue code", "202511021211", true},
		{"venue code zero", "202500021211", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRaceID(tt.raceID)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRaceID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFinishTime(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1:33.5", 93.5, true},
		{"59.8", 59.8, true},
		{"2:00.0", 120.0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"x:33.5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFinishTime(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 0.001, tt.in)
		}
	}
}

func TestFirstCornerPosition(t *testing.T) {
	tests := []struct {
		passing string
		want    int
		ok      bool
	}{
		{"2-1-1-1", 2, true},
		{"14", 14, true},
		{"", 0, false},
		{"x-1", 0, false},
		{"0-1", 0, false},
	}
	for _, tt := range tests {
		r := PastResult{PassingOrder: tt.passing}
		got, ok := r.FirstCornerPosition()
		assert.Equal(t, tt.ok, ok, tt.passing)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.passing)
		}
	}
}

func TestDidNotFinish(t *testing.T) {
	assert.True(t, (&RaceResult{FinishPosition: 0}).DidNotFinish())
	assert.False(t, (&RaceResult{FinishPosition: 1}).DidNotFinish())
}
