package factor

import "github.com/yourusername/keiba-analytics/internal/models"

// Style classifies how a horse runs the early part of a race.
type Style string

const (
	StyleEscape  Style = "escape"
	StyleFront   Style = "front"
	StyleStalker Style = "stalker"
	StyleCloser  Style = "closer"
)

// defaultStyleWinRates is the fallback when no course-specific table is
// supplied for the target venue and distance.
var defaultStyleWinRates = map[Style]float64{
	StyleEscape:  0.15,
	StyleFront:   0.35,
	StyleStalker: 0.35,
	StyleCloser:  0.15,
}

// RunningStyle scores how well the horse's early-pace tendency suits the
// course. The tendency is the modal style over the last five classifiable
// starts, judged from the first-corner position ratio.
type RunningStyle struct{}

func (RunningStyle) Name() string { return NameRunningStyle }

// ClassifyStyle buckets a first-corner position ratio. Boundaries are
// inclusive: 0.15 is escape, 0.40 front, 0.70 stalker.
func ClassifyStyle(firstCorner, totalRunners int) (Style, bool) {
	if firstCorner <= 0 || totalRunners <= 0 {
		return "", false
	}
	ratio := float64(firstCorner) / float64(totalRunners)
	switch {
	case ratio <= 0.15:
		return StyleEscape, true
	case ratio <= 0.40:
		return StyleFront, true
	case ratio <= 0.70:
		return StyleStalker, true
	default:
		return StyleCloser, true
	}
}

func (RunningStyle) Calculate(horseID string, past []models.PastResult, ctx Context) (float64, bool) {
	tendency, ok := horseTendency(past)
	if !ok {
		return 0, false
	}

	stats := ctx.CourseStats
	if stats == nil {
		stats = defaultStyleWinRates
	}
	winRate, ok := stats[tendency]
	if !ok {
		winRate = defaultStyleWinRates[tendency]
	}

	// 5% win rate anchors zero, 40% anchors 100.
	return clipScore((winRate - 0.05) / 0.35 * 100), true
}

// horseTendency returns the modal style over the last five classifiable
// starts. Ties resolve to the style that reached the top count first.
func horseTendency(past []models.PastResult) (Style, bool) {
	var styles []Style
	for _, r := range past {
		if len(styles) == 5 {
			break
		}
		first, ok := r.FirstCornerPosition()
		if !ok || r.TotalRunners <= 0 {
			continue
		}
		if style, ok := ClassifyStyle(first, r.TotalRunners); ok {
			styles = append(styles, style)
		}
	}

	if len(styles) == 0 {
		return "", false
	}

	counts := make(map[Style]int, 4)
	best := styles[0]
	for _, s := range styles {
		counts[s]++
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best, true
}
