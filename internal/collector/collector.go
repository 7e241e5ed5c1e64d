package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hotel-rate-intel/internal/domain"
	"hotel-rate-intel/internal/fetcher"
	"hotel-rate-intel/internal/metrics"
)

const (
	// LiveConfidence is assigned to observations backed by a parsed price.
	LiveConfidence = 0.8
	// FallbackConfidence marks synthetic observations.
	FallbackConfidence = 0.1

	defaultRequestTimeout = 20 * time.Second

	// Prices under this share of the hotel's published minimum are page noise
	// such as city tax or deposits, not room rates.
	minPlausibleShare = 0.5
)

// Options parameterise a Collector.
type Options struct {
	RequestTimeout time.Duration
	// RequestDelay is the minimum gap between the end of one fetch and the start
	// of the next. It also caps the request rate across concurrent collections.
	// Zero disables pacing.
	RequestDelay time.Duration
	// Seed drives the fallback price generator. Zero seeds from the clock.
	Seed int64
	Now  func() time.Time
}

// Collector turns rate source answers into one observation per hotel.
type Collector struct {
	source  fetcher.RateSource
	limiter *rate.Limiter
	delay   time.Duration
	timeout time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New constructs a collector around source.
func New(source fetcher.RateSource, opts Options, m *metrics.Metrics, logger zerolog.Logger) *Collector {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = now().UnixNano()
	}

	return &Collector{
		source:  source,
		limiter: rate.NewLimiter(limit, 1),
		delay:   opts.RequestDelay,
		timeout: timeout,
		now:     now,
		metrics: m,
		logger:  logger.With().Str("component", "collector").Logger(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Collect fetches hotels one after another and returns exactly one observation
// per hotel, in input order. Failures and cancellation yield fallback
// observations instead of errors.
func (c *Collector) Collect(ctx context.Context, hotels []domain.Hotel) []domain.RateObservation {
	out := make([]domain.RateObservation, 0, len(hotels))
	fetched := false
	for _, h := range hotels {
		if err := ctx.Err(); err != nil {
			out = append(out, c.fallback(h, err, 0))
			continue
		}
		if fetched {
			if err := c.pause(ctx); err != nil {
				out = append(out, c.fallback(h, err, 0))
				continue
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			out = append(out, c.fallback(h, err, 0))
			continue
		}
		out = append(out, c.collectOne(ctx, h))
		fetched = true
	}

	live := 0
	for _, o := range out {
		if !o.Synthetic {
			live++
		}
	}
	c.logger.Info().
		Int("hotels", len(hotels)).
		Int("live", live).
		Int("fallback", len(out)-live).
		Msg("collection finished")
	return out
}

func (c *Collector) collectOne(ctx context.Context, hotel domain.Hotel) domain.RateObservation {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	start := time.Now()
	quote, err := c.source.Fetch(fetchCtx, hotel)
	cancel()
	elapsed := time.Since(start)

	if err == nil {
		quote, err = checkQuote(hotel, quote)
	}
	if err != nil {
		return c.fallback(hotel, fetcher.ClassifyError(err), elapsed)
	}

	c.metrics.ObserveFetch("live", "ok", elapsed)
	now := c.now()
	return domain.RateObservation{
		HotelID:       hotel.ID,
		CurrentPrice:  lowest(quote.Prices),
		AveragePrice:  averageOf(quote.History, hotel.PriceRange),
		ObservedAt:    now,
		StayDate:      domain.StartOfDay(now),
		Confidence:    LiveConfidence,
		SourceHistory: quote.History,
	}
}

// pause waits out the request delay after a completed fetch.
func (c *Collector) pause(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fallback synthesises an observation inside the hotel's static price band.
func (c *Collector) fallback(hotel domain.Hotel, cause error, elapsed time.Duration) domain.RateObservation {
	reason := fetcher.Reason(cause)
	c.metrics.ObserveFetch("fallback", reason, elapsed)
	c.logger.Warn().
		Err(cause).
		Str("hotel", hotel.ID).
		Str("reason", reason).
		Msg("rate fetch failed, using fallback observation")

	r := hotel.PriceRange
	c.rngMu.Lock()
	price := r.Min + c.rng.Float64()*(r.Max-r.Min)
	c.rngMu.Unlock()

	now := c.now()
	return domain.RateObservation{
		HotelID:       hotel.ID,
		CurrentPrice:  domain.RoundTo(price, 2),
		AveragePrice:  r.Midpoint(),
		ObservedAt:    now,
		StayDate:      domain.StartOfDay(now),
		Confidence:    FallbackConfidence,
		Synthetic:     true,
		FailureReason: reason,
	}
}

// checkQuote drops non-positive prices and amounts far below the hotel's band,
// and rejects quotes in a foreign currency.
func checkQuote(hotel domain.Hotel, q fetcher.Quote) (fetcher.Quote, error) {
	want := hotel.PriceRange.Currency
	if q.Currency != "" && want != "" && !strings.EqualFold(q.Currency, want) {
		return q, fmt.Errorf("%w: got %s, want %s", fetcher.ErrCurrencyMismatch, q.Currency, want)
	}
	floor := hotel.PriceRange.Min * minPlausibleShare
	prices := q.Prices[:0:0]
	for _, p := range q.Prices {
		if p > 0 && p >= floor && !math.IsInf(p, 0) && !math.IsNaN(p) {
			prices = append(prices, p)
		}
	}
	if len(prices) == 0 {
		return q, fmt.Errorf("%w: hotel %s returned no plausible price", fetcher.ErrNoPrice, hotel.ID)
	}
	q.Prices = prices
	return q, nil
}

func lowest(prices []float64) float64 {
	m := prices[0]
	for _, p := range prices[1:] {
		if p < m {
			m = p
		}
	}
	return m
}

// averageOf prefers the source's own history over the static midpoint.
func averageOf(history []domain.PricePoint, r domain.PriceRange) float64 {
	var sum float64
	var n int
	for _, p := range history {
		if p.Price > 0 {
			sum += p.Price
			n++
		}
	}
	if n == 0 {
		return r.Midpoint()
	}
	return domain.RoundTo(sum/float64(n), 2)
}
