package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hotel-rate-intel/internal/domain"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageBytes     = 4 << 20
)

// PageOptions parameterise the plain HTTP rate source.
type PageOptions struct {
	// URLTemplate is used for hotels without a URL. "{id}" and "{city}" are substituted.
	URLTemplate string
	UserAgent   string
	Timeout     time.Duration
}

// PageSource downloads a hotel's public rate page and extracts prices from its text.
type PageSource struct {
	opts   PageOptions
	logger zerolog.Logger
	client *http.Client
}

// NewPageSource constructs an HTTP page source.
func NewPageSource(opts PageOptions, logger zerolog.Logger) *PageSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PageSource{
		opts:   opts,
		logger: logger.With().Str("component", "page_source").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the hotel's page and returns the prices quoted in its currency.
func (p *PageSource) Fetch(ctx context.Context, hotel domain.Hotel) (Quote, error) {
	target, err := ResolveURL(hotel, p.opts.URLTemplate)
	if err != nil {
		return Quote{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.8")
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Quote{}, ClassifyError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusTooManyRequests:
		return Quote{}, fmt.Errorf("%w: http %d", ErrScrapeBlocked, resp.StatusCode)
	default:
		return Quote{}, fmt.Errorf("rate page %s: http %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Quote{}, ClassifyError(err)
	}

	text := string(body)
	if IsBlockedPage(text) {
		return Quote{}, fmt.Errorf("%w: captcha page", ErrScrapeBlocked)
	}

	quote, err := QuoteFor(hotel, ExtractPrices(text))
	if err != nil {
		return Quote{}, err
	}
	p.logger.Debug().
		Str("hotel", hotel.ID).
		Int("prices", len(quote.Prices)).
		Msg("rate page parsed")
	return quote, nil
}

// ResolveURL picks the hotel's own URL, falling back to the template.
func ResolveURL(hotel domain.Hotel, template string) (string, error) {
	if hotel.URL != "" {
		return hotel.URL, nil
	}
	if template == "" {
		return "", errors.New("hotel has no url and no url template is configured")
	}
	r := strings.NewReplacer(
		"{id}", url.PathEscape(hotel.ID),
		"{city}", url.PathEscape(strings.ToLower(hotel.City)),
	)
	return r.Replace(template), nil
}

var _ RateSource = (*PageSource)(nil)
