package window

import (
	"sort"
	"time"

	"hotel-rate-intel/internal/domain"
)

const (
	maxBestDates  = 5
	maxAvoidDates = 3
)

// Multipliers supplies per-city, per-month demand multipliers.
type Multipliers interface {
	Multiplier(city string, month time.Month) float64
}

// Analyzer derives booking windows from a hotel's rate observations.
type Analyzer struct {
	multipliers Multipliers
	now         func() time.Time
}

// New constructs an analyzer. A nil multiplier source classifies every month
// with multiplier 1.0.
func New(m Multipliers, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{multipliers: m, now: now}
}

// Analyze returns nil when no observation belongs to hotel. Best dates are
// priced at or below min + 0.5(avg-min); avoid dates at or above
// avg + 0.7(max-avg). When every price is equal there is nothing to avoid, so
// AvoidDates is empty rather than listing every date.
func (a *Analyzer) Analyze(hotel domain.Hotel, observations []domain.RateObservation) *domain.BookingWindow {
	var rates []domain.DatedRate
	for _, o := range observations {
		if o.HotelID != hotel.ID || o.CurrentPrice <= 0 {
			continue
		}
		rates = append(rates, domain.DatedRate{
			Date:       stayDate(o),
			Price:      o.CurrentPrice,
			Confidence: o.Confidence,
		})
	}
	if len(rates) == 0 {
		return nil
	}

	sort.SliceStable(rates, func(i, j int) bool {
		if rates[i].Price != rates[j].Price {
			return rates[i].Price < rates[j].Price
		}
		return rates[i].Date.Before(rates[j].Date)
	})

	minPrice := rates[0].Price
	maxPrice := rates[len(rates)-1].Price
	var sum float64
	earliest := rates[0].Date
	for i := range rates {
		sum += rates[i].Price
		rates[i].Savings = domain.RoundTo(maxPrice-rates[i].Price, 2)
		rates[i].SavingsPercentage = domain.RoundTo(rates[i].Savings/maxPrice*100, 1)
		if rates[i].Date.Before(earliest) {
			earliest = rates[i].Date
		}
	}
	avg := sum / float64(len(rates))

	bestCeiling := minPrice + 0.5*(avg-minPrice)
	var best []domain.DatedRate
	for _, r := range rates {
		if r.Price <= bestCeiling && len(best) < maxBestDates {
			best = append(best, r)
		}
	}

	avoid := []domain.DatedRate{}
	if maxPrice > minPrice {
		avoidFloor := avg + 0.7*(maxPrice-avg)
		for i := len(rates) - 1; i >= 0 && len(avoid) < maxAvoidDates; i-- {
			if rates[i].Price >= avoidFloor {
				avoid = append(avoid, rates[i])
			}
		}
	}

	multiplier := 1.0
	if a.multipliers != nil {
		multiplier = a.multipliers.Multiplier(hotel.City, earliest.Month())
	}
	season, demand := ClassifySeason(multiplier)

	return &domain.BookingWindow{
		HotelID:   hotel.ID,
		BestDates: best,
		SeasonalAnalysis: domain.SeasonalAnalysis{
			Season:       season,
			AveragePrice: domain.RoundTo(avg, 2),
			PriceRange:   domain.PriceRange{Min: minPrice, Max: maxPrice, Currency: hotel.PriceRange.Currency},
			DemandLevel:  demand,
			Multiplier:   multiplier,
		},
		Recommendations: domain.WindowRecommendations{
			BestValue:        pick(best[0]),
			BestAvailability: bestAvailability(best),
			AvoidDates:       avoid,
		},
		LastAnalyzed: a.now(),
	}
}

// ClassifySeason maps a demand multiplier to a season and demand level.
func ClassifySeason(multiplier float64) (season, demand string) {
	switch {
	case multiplier >= 2.5:
		return "high", "very-high"
	case multiplier >= 1.5:
		return "mid", "high"
	case multiplier <= 0.8:
		return "low", "low"
	default:
		return "mid", "moderate"
	}
}

// bestAvailability prefers the most trustworthy best date, then the latest stay.
func bestAvailability(best []domain.DatedRate) *domain.DatedRate {
	chosen := best[0]
	for _, r := range best[1:] {
		if r.Confidence > chosen.Confidence || (r.Confidence == chosen.Confidence && r.Date.After(chosen.Date)) {
			chosen = r
		}
	}
	return pick(chosen)
}

func pick(r domain.DatedRate) *domain.DatedRate {
	return &r
}

func stayDate(o domain.RateObservation) time.Time {
	if !o.StayDate.IsZero() {
		return o.StayDate
	}
	return domain.StartOfDay(o.ObservedAt)
}
