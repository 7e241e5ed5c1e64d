package seasonal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hotel-rate-intel/internal/domain"
)

const (
	perfectDayThreshold   = 25.0
	currentMonthThreshold = 20.0
	weeklyWindowDays      = 30
	weeklyMonthSpan       = 3
)

// ErrDataUnavailable reports that no seasonal entry exists for a hotel or month.
var ErrDataUnavailable = errors.New("seasonal: data unavailable")

// Model is the read-only seasonal pricing model.
type Model interface {
	Version() string
	WeeklySuggestions(limit int, now time.Time) []domain.Opportunity
	PerfectDaysForHotel(hotelID string) ([]domain.Opportunity, error)
	CitySeasonalAnalysis(city string) []domain.SeasonalRateEntry
	CurrentMonthOpportunities(now time.Time) []domain.Opportunity
	Entry(hotelID string, month time.Month) (domain.SeasonalRateEntry, error)
	Multiplier(city string, month time.Month) float64
}

// Pattern answers seasonal queries from an in-memory Table.
type Pattern struct {
	version     string
	hotels      map[string]domain.Hotel
	byHotel     map[string][]domain.SeasonalRateEntry
	all         []domain.SeasonalRateEntry
	multipliers map[string][]float64
	now         func() time.Time
}

// Option customises a Pattern.
type Option func(*Pattern)

// WithClock overrides the time source used for date-relative lookups.
func WithClock(now func() time.Time) Option {
	return func(p *Pattern) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPattern indexes table entries for the given hotels. Entries referencing
// hotels outside the list are ignored.
func NewPattern(table *Table, hotels []domain.Hotel, opts ...Option) *Pattern {
	p := &Pattern{
		hotels:      make(map[string]domain.Hotel, len(hotels)),
		byHotel:     make(map[string][]domain.SeasonalRateEntry),
		multipliers: make(map[string][]float64),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, h := range hotels {
		p.hotels[h.ID] = h
	}
	if table == nil {
		return p
	}

	p.version = table.Version
	for _, e := range table.Entries {
		if _, ok := p.hotels[e.HotelID]; !ok {
			continue
		}
		p.byHotel[e.HotelID] = append(p.byHotel[e.HotelID], e)
		p.all = append(p.all, e)
	}
	for id := range p.byHotel {
		entries := p.byHotel[id]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Month < entries[j].Month })
	}
	for city, months := range table.CityMultipliers {
		p.multipliers[strings.ToLower(city)] = months
	}
	return p
}

// Version returns the dataset revision.
func (p *Pattern) Version() string { return p.version }

// WeeklySuggestions ranks perfect days in the current and next two months that
// fall within 30 days of now, by savings weighted by confidence. Months below
// the 25% perfect-day floor are never suggested.
func (p *Pattern) WeeklySuggestions(limit int, now time.Time) []domain.Opportunity {
	if limit <= 0 {
		return []domain.Opportunity{}
	}

	type candidate struct {
		month time.Month
		year  int
	}
	months := make([]candidate, 0, weeklyMonthSpan)
	for i := 0; i < weeklyMonthSpan; i++ {
		first := time.Date(now.Year(), now.Month()+time.Month(i), 1, 0, 0, 0, 0, now.Location())
		months = append(months, candidate{month: first.Month(), year: first.Year()})
	}

	var out []domain.Opportunity
	for _, e := range p.all {
		if e.SavingsPercentage < perfectDayThreshold {
			continue
		}
		for _, c := range months {
			if e.Month != c.month {
				continue
			}
			date := e.PerfectDayDate(c.year, now.Location())
			days := domain.DaysBetween(now, date)
			if days < 0 || days > weeklyWindowDays {
				continue
			}
			out = append(out, p.opportunity(e, date, days))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		si := out[i].SavingsPercentage * out[i].ConfidenceScore
		sj := out[j].SavingsPercentage * out[j].ConfidenceScore
		if si != sj {
			return si > sj
		}
		if out[i].HotelID != out[j].HotelID {
			return out[i].HotelID < out[j].HotelID
		}
		return out[i].Date.Before(out[j].Date)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Opportunity{}
	}
	return out
}

// PerfectDaysForHotel returns the hotel's months with at least 25% savings,
// dated at their next occurrence and sorted by savings descending.
func (p *Pattern) PerfectDaysForHotel(hotelID string) ([]domain.Opportunity, error) {
	entries, ok := p.byHotel[hotelID]
	if !ok || len(entries) == 0 {
		return nil, fmt.Errorf("%w: hotel %s", ErrDataUnavailable, hotelID)
	}

	now := p.now()
	today := domain.StartOfDay(now)
	out := make([]domain.Opportunity, 0, len(entries))
	for _, e := range entries {
		if e.SavingsPercentage < perfectDayThreshold {
			continue
		}
		date := e.PerfectDayDate(now.Year(), now.Location())
		if date.Before(today) {
			date = e.PerfectDayDate(now.Year()+1, now.Location())
		}
		out = append(out, p.opportunity(e, date, domain.DaysBetween(now, date)))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SavingsPercentage != out[j].SavingsPercentage {
			return out[i].SavingsPercentage > out[j].SavingsPercentage
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// CitySeasonalAnalysis lists every entry for hotels in city, by month ascending.
func (p *Pattern) CitySeasonalAnalysis(city string) []domain.SeasonalRateEntry {
	city = strings.TrimSpace(city)
	out := []domain.SeasonalRateEntry{}
	for _, e := range p.all {
		if h, ok := p.hotels[e.HotelID]; ok && strings.EqualFold(h.City, city) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].HotelID < out[j].HotelID
	})
	return out
}

// CurrentMonthOpportunities returns this month's entries with at least 20%
// savings. They are always marked high urgency.
func (p *Pattern) CurrentMonthOpportunities(now time.Time) []domain.Opportunity {
	out := []domain.Opportunity{}
	for _, e := range p.all {
		if e.Month != now.Month() || e.SavingsPercentage < currentMonthThreshold {
			continue
		}
		date := e.PerfectDayDate(now.Year(), now.Location())
		opp := p.opportunity(e, date, domain.DaysBetween(now, date))
		opp.Urgency = domain.UrgencyHigh
		out = append(out, opp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SavingsPercentage != out[j].SavingsPercentage {
			return out[i].SavingsPercentage > out[j].SavingsPercentage
		}
		return out[i].HotelID < out[j].HotelID
	})
	return out
}

// Entry returns the statistics for a hotel and month.
func (p *Pattern) Entry(hotelID string, month time.Month) (domain.SeasonalRateEntry, error) {
	for _, e := range p.byHotel[hotelID] {
		if e.Month == month {
			return e, nil
		}
	}
	return domain.SeasonalRateEntry{}, fmt.Errorf("%w: %s", ErrDataUnavailable, entryKey(hotelID, month))
}

// Multiplier returns the demand multiplier for a city and month, 1.0 when unknown.
func (p *Pattern) Multiplier(city string, month time.Month) float64 {
	months, ok := p.multipliers[strings.ToLower(strings.TrimSpace(city))]
	if !ok || month < time.January || month > time.December {
		return 1.0
	}
	return months[month-1]
}

func (p *Pattern) opportunity(e domain.SeasonalRateEntry, date time.Time, daysUntil int) domain.Opportunity {
	name := e.HotelID
	if h, ok := p.hotels[e.HotelID]; ok {
		name = h.Name
	}

	reasons := []string{
		fmt.Sprintf("historically %.1f%% below the %s average of %.0f", e.SavingsPercentage, e.Month, e.AverageRate),
	}
	reasons = append(reasons, e.SeasonalFactors...)
	reasons = append(reasons, fmt.Sprintf("%s month", e.Recommendation))

	return domain.Opportunity{
		HotelID:           e.HotelID,
		HotelName:         name,
		Date:              date,
		CurrentRate:       e.PerfectDayRate,
		AverageRate:       e.AverageRate,
		SavingsPercentage: e.SavingsPercentage,
		ConfidenceScore:   Confidence(e.SavingsPercentage, len(e.SeasonalFactors)),
		Urgency:           Urgency(daysUntil, e.SavingsPercentage),
		Reasons:           reasons,
		Origin:            domain.OriginSeasonal,
	}
}

var _ Model = (*Pattern)(nil)
