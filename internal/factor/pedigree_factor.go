package factor

import (
	"github.com/yourusername/keiba-analytics/internal/models"
	"github.com/yourusername/keiba-analytics/internal/pedigree"
)

// Sire counts for 70% of the pedigree aptitude, dam-sire for 30%.
const (
	sireWeight    = 0.7
	damSireWeight = 0.3
)

// Pedigree scores the bloodline's fit for the target distance band and
// track type, combining sire and dam-sire lines.
type Pedigree struct{}

func (Pedigree) Name() string { return NamePedigree }

func (Pedigree) Calculate(_ string, _ []models.PastResult, ctx Context) (float64, bool) {
	if ctx.Sire == "" || ctx.Distance <= 0 {
		return 0, false
	}

	sireApt := pedigree.LineAptitude(pedigree.SireLine(ctx.Sire))
	damSireLine := pedigree.LineOther
	if ctx.DamSire != "" {
		damSireLine = pedigree.SireLine(ctx.DamSire)
	}
	damSireApt := pedigree.LineAptitude(damSireLine)

	band := pedigree.BandForDistance(ctx.Distance)
	track := trackTypeFor(ctx.TrackCondition)

	distanceScore := sireApt.Distance[band]*sireWeight + damSireApt.Distance[band]*damSireWeight
	trackScore := sireApt.Track[track]*sireWeight + damSireApt.Track[track]*damSireWeight

	combined := (distanceScore + trackScore) / 2
	return clipScore(combined * 100), true
}

// trackTypeFor collapses the going into the two aptitude dimensions.
// Unknown going is treated as good, matching the scraped-data reality that
// most races run on good ground.
func trackTypeFor(cond models.TrackCondition) pedigree.TrackType {
	switch cond {
	case models.TrackHeavy, models.TrackBad:
		return pedigree.TrackTypeHeavy
	default:
		return pedigree.TrackTypeGood
	}
}
