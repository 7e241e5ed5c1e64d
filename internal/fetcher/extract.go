package fetcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"hotel-rate-intel/internal/domain"
)

var (
	symbolFirstRegex = regexp.MustCompile(`(€|\$|£|EUR|USD|GBP)\s?(\d[\d.,]*)`)
	symbolAfterRegex = regexp.MustCompile(`(\d[\d.,]*)\s?(€|£|EUR|USD|GBP)`)
	captchaMarkers   = []string{"captcha", "are you a robot", "unusual traffic", "access denied"}
)

var currencyCodes = map[string]string{
	"€":   "EUR",
	"EUR": "EUR",
	"$":   "USD",
	"USD": "USD",
	"£":   "GBP",
	"GBP": "GBP",
}

// Price is one currency-tagged amount found in page text.
type Price struct {
	Amount   float64
	Currency string
}

// ExtractPrices scans text for currency-tagged amounts such as "€1.234,50",
// "$320" or "189 EUR". Amounts that do not parse to a positive number are skipped.
func ExtractPrices(text string) []Price {
	var out []Price
	for _, m := range symbolFirstRegex.FindAllStringSubmatch(text, -1) {
		if p, ok := newPrice(m[2], m[1]); ok {
			out = append(out, p)
		}
	}
	for _, m := range symbolAfterRegex.FindAllStringSubmatch(text, -1) {
		if p, ok := newPrice(m[1], m[2]); ok {
			out = append(out, p)
		}
	}
	return out
}

// IsBlockedPage reports whether body looks like an anti-bot interstitial.
func IsBlockedPage(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// QuoteFor keeps the prices quoted in the hotel's currency.
func QuoteFor(hotel domain.Hotel, prices []Price) (Quote, error) {
	if len(prices) == 0 {
		return Quote{}, ErrNoPrice
	}
	want := strings.ToUpper(hotel.PriceRange.Currency)
	if want == "" {
		want = prices[0].Currency
	}

	q := Quote{Currency: want}
	for _, p := range prices {
		if p.Currency == want {
			q.Prices = append(q.Prices, p.Amount)
		}
	}
	if len(q.Prices) == 0 {
		return Quote{}, fmt.Errorf("%w: page quotes %s, hotel expects %s", ErrCurrencyMismatch, prices[0].Currency, want)
	}
	return q, nil
}

func newPrice(raw, symbol string) (Price, bool) {
	code, ok := currencyCodes[symbol]
	if !ok {
		return Price{}, false
	}
	amount, err := parseAmount(raw)
	if err != nil || !amount.IsPositive() {
		return Price{}, false
	}
	return Price{Amount: amount.InexactFloat64(), Currency: code}, true
}

// parseAmount accepts both "1,234.50" and "1.234,50" conventions. A single
// separator followed by exactly three digits is read as a thousands separator.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimRight(raw, ".,")
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 || lastComma >= 0:
		sep, idx := ".", lastDot
		if lastComma >= 0 {
			sep, idx = ",", lastComma
		}
		if strings.Count(s, sep) > 1 || len(s)-idx-1 == 3 {
			s = strings.ReplaceAll(s, sep, "")
		} else {
			s = strings.Replace(s, sep, ".", 1)
		}
	}
	return decimal.NewFromString(s)
}
