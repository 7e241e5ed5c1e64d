package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"hotel-rate-intel/internal/catalog"
	"hotel-rate-intel/internal/domain"
	"hotel-rate-intel/internal/seasonal"
)

const (
	// DefaultLimit caps the merged opportunity list.
	DefaultLimit = 5
	// DefaultSeasonalHorizon bounds how far ahead seasonal perfect days are considered.
	DefaultSeasonalHorizon = 90 * 24 * time.Hour

	minConfidence      = 0.5
	minSavings         = 10.0
	fallbackCount      = 3
	fallbackFactor     = 0.85
	fallbackConfidence = 0.3
)

// ErrAggregation reports an unexpected fault while merging sources.
var ErrAggregation = errors.New("opportunity aggregation failed")

// Options parameterise a Detector.
type Options struct {
	Limit           int
	SeasonalHorizon time.Duration
	Now             func() time.Time
}

// Detector merges realtime observations with seasonal perfect days.
type Detector struct {
	hotels  catalog.Source
	limit   int
	horizon time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// New constructs a detector over the hotels of src.
func New(src catalog.Source, opts Options, logger zerolog.Logger) *Detector {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.SeasonalHorizon <= 0 {
		opts.SeasonalHorizon = DefaultSeasonalHorizon
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Detector{
		hotels:  src,
		limit:   opts.Limit,
		horizon: opts.SeasonalHorizon,
		now:     opts.Now,
		logger:  logger.With().Str("component", "detector").Logger(),
	}
}

// Detect returns at most limit opportunities, seasonal ones first, each group by
// savings descending. A limit of zero or less uses the configured default. It
// never returns an empty list: when nothing qualifies, or on an internal fault,
// low-confidence estimates derived from the catalog are returned instead.
func (d *Detector) Detect(ctx context.Context, observations []domain.RateObservation, model seasonal.Model, limit int) (out []domain.Opportunity) {
	if limit <= 0 {
		limit = d.limit
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Err(fmt.Errorf("%w: %v", ErrAggregation, r)).
				Msg("detector recovered from fault, serving fallback opportunities")
			out = d.Fallback(limit)
		}
	}()

	now := d.now()
	realtime := d.realtime(observations)
	var seasonalOpps []domain.Opportunity
	if model != nil {
		seasonalOpps = d.seasonal(ctx, model, now)
	}

	bySavings(seasonalOpps)
	bySavings(realtime)
	merged := make([]domain.Opportunity, 0, len(seasonalOpps)+len(realtime))
	merged = append(merged, seasonalOpps...)
	merged = append(merged, realtime...)

	if len(merged) == 0 {
		d.logger.Warn().Msg("no realtime or seasonal opportunity qualified, serving fallback")
		return d.Fallback(limit)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}

	d.logger.Debug().
		Int("seasonal", len(seasonalOpps)).
		Int("realtime", len(realtime)).
		Int("returned", len(merged)).
		Msg("opportunities detected")
	return merged
}

// realtime keeps trustworthy observations with enough savings, one per hotel.
func (d *Detector) realtime(observations []domain.RateObservation) []domain.Opportunity {
	best := make(map[string]domain.Opportunity)
	var order []string
	for _, o := range observations {
		if o.Confidence < minConfidence {
			continue
		}
		savings := domain.SavingsPercentage(o.AveragePrice, o.CurrentPrice)
		if savings < minSavings {
			continue
		}

		opp := domain.Opportunity{
			HotelID:           o.HotelID,
			HotelName:         d.hotelName(o.HotelID),
			Date:              stayDate(o),
			CurrentRate:       o.CurrentPrice,
			AverageRate:       o.AveragePrice,
			SavingsPercentage: savings,
			ConfidenceScore:   domain.Clamp01(o.Confidence),
			Urgency:           RealtimeUrgency(savings, o.Confidence),
			Reasons: []string{
				fmt.Sprintf("live rate %.0f is %.1f%% below the reference average of %.0f", o.CurrentPrice, savings, o.AveragePrice),
			},
			Origin: domain.OriginRealtime,
		}
		prev, seen := best[o.HotelID]
		if !seen {
			order = append(order, o.HotelID)
		}
		if !seen || opp.SavingsPercentage > prev.SavingsPercentage {
			best[o.HotelID] = opp
		}
	}

	out := make([]domain.Opportunity, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// seasonal picks each hotel's best perfect day inside the horizon.
func (d *Detector) seasonal(ctx context.Context, model seasonal.Model, now time.Time) []domain.Opportunity {
	horizonDays := int(d.horizon / (24 * time.Hour))
	var out []domain.Opportunity
	for _, h := range d.hotels.Hotels() {
		if ctx.Err() != nil {
			break
		}
		days, err := model.PerfectDaysForHotel(h.ID)
		if err != nil {
			if !errors.Is(err, seasonal.ErrDataUnavailable) {
				d.logger.Warn().Err(err).Str("hotel", h.ID).Msg("seasonal lookup failed")
			}
			continue
		}
		for _, opp := range days {
			until := domain.DaysBetween(now, opp.Date)
			if until >= 0 && until <= horizonDays {
				out = append(out, opp)
				break
			}
		}
	}
	return out
}

// Fallback builds up to three clearly low-confidence estimates from the first
// catalog hotels' static price ranges.
func (d *Detector) Fallback(limit int) []domain.Opportunity {
	n := fallbackCount
	if limit > 0 && limit < n {
		n = limit
	}
	hotels := d.hotels.Hotels()
	if len(hotels) < n {
		n = len(hotels)
	}

	today := domain.StartOfDay(d.now())
	out := make([]domain.Opportunity, 0, n)
	for _, h := range hotels[:n] {
		avg := h.PriceRange.Midpoint()
		current := domain.RoundTo(avg*fallbackFactor, 2)
		out = append(out, domain.Opportunity{
			HotelID:           h.ID,
			HotelName:         h.Name,
			Date:              today,
			CurrentRate:       current,
			AverageRate:       avg,
			SavingsPercentage: domain.SavingsPercentage(avg, current),
			ConfidenceScore:   fallbackConfidence,
			Urgency:           domain.UrgencyLow,
			Reasons:           []string{"live rates unavailable, estimated from the published price range"},
			Origin:            domain.OriginRealtime,
		})
	}
	return out
}

// RealtimeUrgency grades a live observation by savings and confidence.
func RealtimeUrgency(savings, confidence float64) domain.Urgency {
	switch {
	case savings >= 20 && confidence >= 0.7:
		return domain.UrgencyHigh
	case savings >= 15 && confidence >= 0.5:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

func (d *Detector) hotelName(id string) string {
	if h, ok := d.hotels.Lookup(id); ok {
		return h.Name
	}
	return id
}

func stayDate(o domain.RateObservation) time.Time {
	if !o.StayDate.IsZero() {
		return o.StayDate
	}
	return domain.StartOfDay(o.ObservedAt)
}

func bySavings(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].SavingsPercentage != opps[j].SavingsPercentage {
			return opps[i].SavingsPercentage > opps[j].SavingsPercentage
		}
		return opps[i].HotelID < opps[j].HotelID
	})
}
