// Package payout provides the payout-fetching capability the ticket
// simulators settle against: a rate-limited HTTP fetcher over the public
// race database plus a shared cache so the four ticket kinds reuse one
// page fetch per race.
package payout

import "context"

// PlacePayout is one placed horse's payout per 100 yen staked.
type PlacePayout struct {
	HorseNumber  int
	PayoutPer100 int
}

// WinPayout is the winner's payout per 100 yen staked.
type WinPayout struct {
	HorseNumber  int
	PayoutPer100 int
}

// QuinellaPayout is the payout for the unordered 1st/2nd pair.
// Pair is sorted ascending.
type QuinellaPayout struct {
	Pair         [2]int
	PayoutPer100 int
}

// TrioPayout is the payout for the unordered top-3 triple.
// Triple is sorted ascending.
type TrioPayout struct {
	Triple       [3]int
	PayoutPer100 int
}

// Bundle is every payout parsed from one settled race page.
type Bundle struct {
	Place    []PlacePayout
	Win      *WinPayout
	Quinella *QuinellaPayout
	Trio     *TrioPayout
}

// Fetcher is the capability the simulators depend on. Implementations
// surface models.ErrNotYetSettled, models.ErrParseFailed, or network
// errors; callers treat all of them as "absent payout".
type Fetcher interface {
	FetchPlacePayouts(ctx context.Context, raceID string) ([]PlacePayout, error)
	FetchWinPayout(ctx context.Context, raceID string) (*WinPayout, error)
	FetchQuinellaPayout(ctx context.Context, raceID string) (*QuinellaPayout, error)
	FetchTrioPayout(ctx context.Context, raceID string) (*TrioPayout, error)
}
