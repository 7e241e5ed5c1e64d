package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Urgency is a coarse classification of how quickly an opportunity should be acted on.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Origin names the data source an opportunity was derived from.
type Origin string

const (
	OriginRealtime Origin = "realtime"
	OriginSeasonal Origin = "seasonal"
)

// Recommendation grades a seasonal month for a hotel.
type Recommendation string

const (
	RecommendationExcellent Recommendation = "excellent"
	RecommendationGood      Recommendation = "good"
	RecommendationFair      Recommendation = "fair"
	RecommendationAvoid     Recommendation = "avoid"
)

// Valid reports whether r is one of the known grades.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationExcellent, RecommendationGood, RecommendationFair, RecommendationAvoid:
		return true
	}
	return false
}

// PriceRange is the static nightly price band of a hotel.
type PriceRange struct {
	Min      float64 `json:"min" yaml:"min" validate:"gt=0"`
	Max      float64 `json:"max" yaml:"max" validate:"gtefield=Min"`
	Currency string  `json:"currency" yaml:"currency" validate:"len=3,uppercase"`
}

// Midpoint returns the centre of the band.
func (p PriceRange) Midpoint() float64 {
	return (p.Min + p.Max) / 2
}

// Hotel is a monitored property. Loaded once, never mutated.
type Hotel struct {
	ID         string     `json:"id" yaml:"id" validate:"required"`
	Name       string     `json:"name" yaml:"name" validate:"required"`
	City       string     `json:"city" yaml:"city" validate:"required"`
	Category   string     `json:"category" yaml:"category"`
	StarRating int        `json:"starRating" yaml:"star_rating" validate:"min=1,max=5"`
	PriceRange PriceRange `json:"priceRange" yaml:"price_range"`
	URL        string     `json:"url,omitempty" yaml:"url" validate:"omitempty,url"`
}

// PricePoint is a dated price reported by a rate source.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// RateObservation is a single current-price reading for a hotel.
type RateObservation struct {
	HotelID       string       `json:"hotelId"`
	CurrentPrice  float64      `json:"currentPrice"`
	AveragePrice  float64      `json:"averagePrice"`
	ObservedAt    time.Time    `json:"observedAt"`
	StayDate      time.Time    `json:"stayDate"`
	Confidence    float64      `json:"confidence"`
	SourceHistory []PricePoint `json:"sourceHistory"`
	Synthetic     bool         `json:"synthetic"`
	FailureReason string       `json:"failureReason,omitempty"`
}

// SeasonalRateEntry holds historical monthly rate statistics for one hotel.
type SeasonalRateEntry struct {
	HotelID           string         `json:"hotelId" yaml:"hotel_id"`
	Month             time.Month     `json:"month" yaml:"month"`
	AverageRate       float64        `json:"averageRate" yaml:"average_rate"`
	LowRate           float64        `json:"lowRate" yaml:"low_rate"`
	HighRate          float64        `json:"highRate" yaml:"high_rate"`
	PerfectDayRate    float64        `json:"perfectDayRate" yaml:"perfect_day_rate"`
	PerfectDay        int            `json:"perfectDay" yaml:"perfect_day"`
	SavingsPercentage float64        `json:"savingsPercentage" yaml:"savings_pct"`
	SeasonalFactors   []string       `json:"seasonalFactors" yaml:"factors"`
	Recommendation    Recommendation `json:"recommendation" yaml:"recommendation"`
}

// PerfectDayDate resolves the perfect day to a calendar date in the given year.
// Days past the end of the month are clamped to its last day.
func (e SeasonalRateEntry) PerfectDayDate(year int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	last := time.Date(year, e.Month+1, 0, 0, 0, 0, 0, loc).Day()
	day := e.PerfectDay
	if day < 1 {
		day = 1
	}
	if day > last {
		day = last
	}
	return time.Date(year, e.Month, day, 0, 0, 0, 0, loc)
}

// Opportunity is a ranked, scored booking opportunity.
type Opportunity struct {
	HotelID           string    `json:"hotelId"`
	HotelName         string    `json:"hotelName"`
	Date              time.Time `json:"date"`
	CurrentRate       float64   `json:"currentRate"`
	AverageRate       float64   `json:"averageRate"`
	SavingsPercentage float64   `json:"savingsPercentage"`
	ConfidenceScore   float64   `json:"confidenceScore"`
	Urgency           Urgency   `json:"urgency"`
	Reasons           []string  `json:"reasons"`
	Origin            Origin    `json:"origin"`
}

// DatedRate is one analysed date in a booking window.
type DatedRate struct {
	Date              time.Time `json:"date"`
	Price             float64   `json:"price"`
	Savings           float64   `json:"savings"`
	SavingsPercentage float64   `json:"savingsPercentage"`
	Confidence        float64   `json:"confidence"`
}

// SeasonalAnalysis classifies demand for the analysed period.
type SeasonalAnalysis struct {
	Season       string     `json:"season"`
	AveragePrice float64    `json:"averagePrice"`
	PriceRange   PriceRange `json:"priceRange"`
	DemandLevel  string     `json:"demandLevel"`
	Multiplier   float64    `json:"multiplier"`
}

// WindowRecommendations summarises what to book and what to skip.
type WindowRecommendations struct {
	BestValue        *DatedRate  `json:"bestValue,omitempty"`
	BestAvailability *DatedRate  `json:"bestAvailability,omitempty"`
	AvoidDates       []DatedRate `json:"avoidDates"`
}

// BookingWindow is the per-hotel result of analysing an observation set.
type BookingWindow struct {
	HotelID          string                `json:"hotelId"`
	BestDates        []DatedRate           `json:"bestDates"`
	SeasonalAnalysis SeasonalAnalysis      `json:"seasonalAnalysis"`
	Recommendations  WindowRecommendations `json:"recommendations"`
	LastAnalyzed     time.Time             `json:"lastAnalyzed"`
}

var hundred = decimal.NewFromInt(100)

// SavingsPercentage returns (average-current)/average*100 rounded to one decimal.
// A non-positive average yields zero.
func SavingsPercentage(average, current float64) float64 {
	if average <= 0 {
		return 0
	}
	avg := decimal.NewFromFloat(average)
	cur := decimal.NewFromFloat(current)
	return avg.Sub(cur).Div(avg).Mul(hundred).Round(1).InexactFloat64()
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	from := StartOfDay(a)
	to := StartOfDay(b.In(a.Location()))
	return int(math.Round(to.Sub(from).Hours() / 24))
}
