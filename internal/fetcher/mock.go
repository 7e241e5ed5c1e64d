package fetcher

import (
	"context"
	"hash/fnv"
	"sync"

	"hotel-rate-intel/internal/domain"
)

// MockSource is a deterministic, table-driven rate source.
type MockSource struct {
	mu     sync.Mutex
	quotes map[string]Quote
	errs   map[string]error
	calls  []string

	// Simulate answers hotels without a table entry with a stable price derived
	// from the hotel id. When false such hotels yield ErrNoPrice.
	Simulate bool
}

// NewMockSource returns an empty mock.
func NewMockSource() *MockSource {
	return &MockSource{quotes: make(map[string]Quote), errs: make(map[string]error)}
}

// SetQuote registers the quote returned for hotelID.
func (m *MockSource) SetQuote(hotelID string, q Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[hotelID] = q
	delete(m.errs, hotelID)
}

// SetPrices is a shorthand for SetQuote with prices in currency.
func (m *MockSource) SetPrices(hotelID, currency string, prices ...float64) {
	m.SetQuote(hotelID, Quote{Prices: prices, Currency: currency})
}

// SetError registers the error returned for hotelID.
func (m *MockSource) SetError(hotelID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[hotelID] = err
	delete(m.quotes, hotelID)
}

// Calls returns the hotel ids fetched so far, in order.
func (m *MockSource) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Fetch implements RateSource.
func (m *MockSource) Fetch(ctx context.Context, hotel domain.Hotel) (Quote, error) {
	m.mu.Lock()
	m.calls = append(m.calls, hotel.ID)
	q, hasQuote := m.quotes[hotel.ID]
	err, hasErr := m.errs[hotel.ID]
	m.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Quote{}, ClassifyError(ctxErr)
	}
	switch {
	case hasErr:
		return Quote{}, err
	case hasQuote:
		return q, nil
	case m.Simulate:
		return simulatedQuote(hotel), nil
	default:
		return Quote{}, ErrNoPrice
	}
}

// simulatedQuote derives a stable price inside the hotel's band from its id.
func simulatedQuote(hotel domain.Hotel) Quote {
	h := fnv.New32a()
	_, _ = h.Write([]byte(hotel.ID))
	frac := 0.55 + 0.45*float64(h.Sum32()%1000)/1000
	r := hotel.PriceRange
	price := domain.RoundTo(r.Min+(r.Max-r.Min)*frac*frac, 0)
	return Quote{Prices: []float64{price, domain.RoundTo(price*1.12, 0)}, Currency: r.Currency}
}

var _ RateSource = (*MockSource)(nil)
