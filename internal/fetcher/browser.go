package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"hotel-rate-intel/internal/domain"
)

// priceTextJS collects the text of elements that look like they carry a price.
const priceTextJS = `
(function() {
	var out = [];
	var selectors = ['[data-testid*="price"]', '[class*="price"]', '[class*="rate"]', '[itemprop="price"]'];
	selectors.forEach(function(sel) {
		document.querySelectorAll(sel).forEach(function(el) {
			var t = (el.innerText || '').trim();
			if (t && t.length < 200) out.push(t);
		});
	});
	return {
		texts: out,
		body: (document.body ? document.body.innerText : '').slice(0, 20000)
	};
})()
`

// BrowserOptions parameterise the headless Chrome rate source.
type BrowserOptions struct {
	URLTemplate string
	UserAgent   string
	// Settle is how long to let client-side rendering run after navigation.
	Settle time.Duration
}

// BrowserSource renders a hotel's rate page in headless Chrome.
type BrowserSource struct {
	opts   BrowserOptions
	logger zerolog.Logger
}

// NewBrowserSource constructs a chromedp-backed rate source.
func NewBrowserSource(opts BrowserOptions, logger zerolog.Logger) *BrowserSource {
	if opts.Settle <= 0 {
		opts.Settle = 3 * time.Second
	}
	return &BrowserSource{opts: opts, logger: logger.With().Str("component", "browser_source").Logger()}
}

// newContext starts a fresh browser for a single fetch. The browser lives as
// long as ctx.
func (b *BrowserSource) newContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ua := strings.TrimSpace(b.opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return browserCtx, func() {
		cancelCtx()
		cancelAlloc()
	}
}

// Fetch navigates to the hotel's page and extracts prices from the rendered DOM.
func (b *BrowserSource) Fetch(ctx context.Context, hotel domain.Hotel) (Quote, error) {
	target, err := ResolveURL(hotel, b.opts.URLTemplate)
	if err != nil {
		return Quote{}, err
	}

	browserCtx, cancel := b.newContext(ctx)
	defer cancel()

	var page struct {
		Texts []string `json:"texts"`
		Body  string   `json:"body"`
	}
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.Sleep(b.opts.Settle),
		chromedp.Evaluate(priceTextJS, &page),
	)
	if err != nil {
		if ctx.Err() != nil {
			return Quote{}, ClassifyError(ctx.Err())
		}
		return Quote{}, fmt.Errorf("render %s: %w", target, ClassifyError(err))
	}

	if IsBlockedPage(page.Body) {
		return Quote{}, fmt.Errorf("%w: captcha page", ErrScrapeBlocked)
	}

	prices := ExtractPrices(strings.Join(page.Texts, "\n"))
	if len(prices) == 0 {
		prices = ExtractPrices(page.Body)
	}
	quote, err := QuoteFor(hotel, prices)
	if err != nil {
		return Quote{}, err
	}
	b.logger.Debug().
		Str("hotel", hotel.ID).
		Int("prices", len(quote.Prices)).
		Msg("rendered rate page parsed")
	return quote, nil
}

var _ RateSource = (*BrowserSource)(nil)
