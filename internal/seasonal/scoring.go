package seasonal

import (
	"math"

	"hotel-rate-intel/internal/domain"
)

// Confidence scores a seasonal entry from its savings depth and the number of
// seasonal factors backing it: min(s/40,1) + min(0.1*factors,0.3), capped at 1.
func Confidence(savingsPct float64, factorCount int) float64 {
	base := math.Min(savingsPct/40, 1)
	support := math.Min(0.1*float64(factorCount), 0.3)
	return domain.RoundTo(domain.Clamp01(base+support), 4)
}

// Urgency grades how soon a seasonal perfect day must be acted on.
func Urgency(daysUntil int, savingsPct float64) domain.Urgency {
	switch {
	case daysUntil <= 7 || savingsPct >= 35:
		return domain.UrgencyHigh
	case daysUntil <= 14 || savingsPct >= 25:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}
