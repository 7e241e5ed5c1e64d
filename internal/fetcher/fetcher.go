package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"

	"hotel-rate-intel/internal/domain"
)

var (
	// ErrScrapeTimeout reports that a source did not answer within its deadline.
	ErrScrapeTimeout = errors.New("rate source timed out")
	// ErrScrapeBlocked reports that the remote site refused the request (403/429/captcha).
	ErrScrapeBlocked = errors.New("rate source blocked the request")
	// ErrNoPrice reports that the response carried no usable price.
	ErrNoPrice = errors.New("no price found")
	// ErrCurrencyMismatch reports prices quoted in a currency other than the hotel's.
	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", ErrNoPrice)
)

// Quote is what a rate source extracted for one hotel.
type Quote struct {
	Prices   []float64
	Currency string
	History  []domain.PricePoint
}

// RateSource retrieves the currently advertised nightly prices of a hotel.
type RateSource interface {
	Fetch(ctx context.Context, hotel domain.Hotel) (Quote, error)
}

// ClassifyError folds deadline and network timeout errors into ErrScrapeTimeout.
// Other errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrScrapeTimeout) || errors.Is(err, ErrScrapeBlocked) || errors.Is(err, ErrNoPrice) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrScrapeTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrScrapeTimeout, err)
	}
	return err
}

// Reason returns a short, stable label for err, used in logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrScrapeTimeout):
		return "timeout"
	case errors.Is(err, ErrScrapeBlocked):
		return "blocked"
	case errors.Is(err, ErrCurrencyMismatch):
		return "currency"
	case errors.Is(err, ErrNoPrice):
		return "no_price"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
